package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ghdigest/server/internal/mcp"
)

// ToolCaller is the slice of the backend client the planner needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolCallResult, error)
}

// gatherActivity runs the fixed set of day-scoped queries against the
// GitHub backend and assembles the per-category collections.
//
// Each of the four search categories is independent: a decode failure
// empties that category only. Backend call errors abort the whole gather,
// with one exception: the "repository is empty" condition during the commit
// scan, which skips that repository and moves on.
func gatherActivity(ctx context.Context, gh ToolCaller, user string, window DayWindow) (*Report, error) {
	report := newReport()

	repos, err := resolveRepositories(ctx, gh, user)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("repos", len(repos)).Str("user", user).Msg("resolved repositories")

	// The four searches are independent and may run concurrently; the
	// stdio client serialises the actual round-trips.
	queries := []struct {
		qualifier string
		dest      *[]Item
	}{
		{"author:%s type:pr created:%s", &report.PRsCreated},
		{"author:%s is:pr merged:%s", &report.PRsMerged},
		{"author:%s type:issue created:%s", &report.IssuesCreated},
		{"author:%s type:issue closed:%s", &report.IssuesClosed},
	}
	eg, egCtx := errgroup.WithContext(ctx)
	for _, q := range queries {
		q := q
		eg.Go(func() error {
			items, err := searchActivity(egCtx, gh, fmt.Sprintf(q.qualifier, user, window.dateRange()))
			if err != nil {
				return err
			}
			*q.dest = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := scanCommits(ctx, gh, user, window, repos, report); err != nil {
		return nil, err
	}
	if err := scanBranches(ctx, gh, user, window, repos, report); err != nil {
		return nil, err
	}
	return report, nil
}

// resolveRepositories fetches the set of repositories associated with the
// user. A decode failure yields an empty set rather than aborting the run.
func resolveRepositories(ctx context.Context, gh ToolCaller, user string) ([]*github.Repository, error) {
	res, err := gh.CallTool(ctx, "search_repositories", map[string]any{"query": "user:" + user})
	if err != nil {
		return nil, err
	}
	var result github.RepositoriesSearchResult
	if !decodeInto(res, &result) {
		return nil, nil
	}
	return result.Repositories, nil
}

func searchActivity(ctx context.Context, gh ToolCaller, query string) ([]Item, error) {
	res, err := gh.CallTool(ctx, "search_issues", map[string]any{"q": query})
	if err != nil {
		return nil, err
	}
	var result github.IssuesSearchResult
	if !decodeInto(res, &result) {
		return nil, nil
	}

	items := make([]Item, 0, len(result.Issues))
	for _, issue := range result.Issues {
		items = append(items, Item{
			Repo:   repoFromURL(issue.GetRepositoryURL()),
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
			URL:    issue.GetHTMLURL(),
		})
	}
	return items, nil
}

// scanCommits lists each repository's commits since the window start and
// retains at most the first commit authored by the user inside the window.
func scanCommits(ctx context.Context, gh ToolCaller, user string, window DayWindow, repos []*github.Repository, report *Report) error {
	for _, repo := range repos {
		owner, name := repo.GetOwner().GetLogin(), repo.GetName()
		res, err := gh.CallTool(ctx, "list_commits", map[string]any{
			"owner": owner,
			"repo":  name,
			"since": window.Start.Format(time.RFC3339),
		})
		if err != nil {
			if isEmptyRepoErr(err) {
				log.Info().Str("repo", owner+"/"+name).Msg("skipping empty repository")
				continue
			}
			return err
		}

		var commits []*github.RepositoryCommit
		if !decodeInto(res, &commits) {
			continue
		}
		for _, commit := range commits {
			if !authoredInWindow(commit, user, window) {
				continue
			}
			report.CommitsByRepo[owner+"/"+name] = []Commit{{
				Message: firstLine(commit.GetCommit().GetMessage()),
				SHA:     commit.GetSHA(),
			}}
			break
		}
	}
	return nil
}

// scanBranches lists each repository's branches and fetches every tip
// commit individually; all qualifying branches are kept, in discovery
// order.
func scanBranches(ctx context.Context, gh ToolCaller, user string, window DayWindow, repos []*github.Repository, report *Report) error {
	for _, repo := range repos {
		owner, name := repo.GetOwner().GetLogin(), repo.GetName()
		res, err := gh.CallTool(ctx, "list_branches", map[string]any{"owner": owner, "repo": name})
		if err != nil {
			return err
		}

		var branches []*github.Branch
		if !decodeInto(res, &branches) {
			continue
		}
		for _, branch := range branches {
			cres, err := gh.CallTool(ctx, "get_commit", map[string]any{
				"owner": owner,
				"repo":  name,
				"sha":   branch.GetCommit().GetSHA(),
			})
			if err != nil {
				return err
			}
			var commit github.RepositoryCommit
			if !decodeInto(cres, &commit) {
				continue
			}
			if !authoredInWindow(&commit, user, window) {
				continue
			}
			full := owner + "/" + name
			report.BranchesByRepo[full] = append(report.BranchesByRepo[full], BranchUpdate{
				Name:          branch.GetName(),
				CommitMessage: firstLine(commit.GetCommit().GetMessage()),
			})
		}
	}
	return nil
}

// authoredInWindow applies the shared commit predicate: author date inside
// the window and author login an exact match. A commit with no author
// login never qualifies; the generated getters make the nil chain safe.
func authoredInWindow(commit *github.RepositoryCommit, user string, window DayWindow) bool {
	if !window.Contains(commit.GetCommit().GetAuthor().GetDate().Time) {
		return false
	}
	login := commit.GetAuthor().GetLogin()
	return login != "" && login == user
}

// isEmptyRepoErr reports the backend's "no commit history yet" condition.
// The classification matches the backend's message text, so it is
// sensitive to upstream wording changes.
func isEmptyRepoErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Git Repository is empty")
}

// repoFromURL derives "owner/name" from the item's API repository URL.
func repoFromURL(apiURL string) string {
	parts := strings.Split(apiURL, "/")
	if len(parts) < 2 {
		return apiURL
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
