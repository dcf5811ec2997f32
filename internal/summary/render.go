package summary

import (
	"fmt"
	"sort"
	"strings"
)

// renderSummary turns the aggregated report into the summary text. It is a
// pure function of its inputs; the window is only used to print the date.
// The shape is fixed and consumed downstream byte-for-byte, so section
// order, headings and item formats must not drift.
func renderSummary(user string, window DayWindow, report *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily GitHub Activity Summary for %s on %s:\n\n", user, window.Start.Format("2006-01-02"))

	writeItems(&b, "Pull Requests Created Today", "PR", report.PRsCreated)
	writeItems(&b, "Pull Requests Merged Today", "PR", report.PRsMerged)
	writeItems(&b, "Issues Created Today", "Issue", report.IssuesCreated)
	writeItems(&b, "Issues Closed Today", "Issue", report.IssuesClosed)

	b.WriteString("**Commits Made Today:**\n")
	if len(report.CommitsByRepo) > 0 {
		for _, repo := range sortedKeys(report.CommitsByRepo) {
			fmt.Fprintf(&b, "- %s:\n", repo)
			for _, commit := range report.CommitsByRepo[repo] {
				fmt.Fprintf(&b, "  - \"%s\" (SHA: %s)\n", commit.Message, shortSHA(commit.SHA))
			}
		}
	} else {
		b.WriteString("- None\n")
	}

	b.WriteString("**Branches Updated Today:**\n")
	if len(report.BranchesByRepo) > 0 {
		for _, repo := range sortedKeys(report.BranchesByRepo) {
			fmt.Fprintf(&b, "- %s:\n", repo)
			for _, branch := range report.BranchesByRepo[repo] {
				fmt.Fprintf(&b, "  - %s: \"%s\"\n", branch.Name, branch.CommitMessage)
			}
		}
	} else {
		b.WriteString("- None\n")
	}

	b.WriteString("**Branches Deleted Today:**\n- Not detectable with current API\n")
	b.WriteString("**Repositories Deleted Today:**\n- Not detectable with current API\n")

	return b.String()
}

func writeItems(b *strings.Builder, heading, kind string, items []Item) {
	fmt.Fprintf(b, "**%s:**\n", heading)
	if len(items) == 0 {
		b.WriteString("- None\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s #%d in %s: \"%s\" (%s)\n", kind, item.Number, item.Repo, item.Title, item.URL)
	}
}

// sortedKeys orders repo groups by name. Go maps iterate in random order
// and the rendered text must be deterministic for identical inputs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
