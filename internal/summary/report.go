// Package summary gathers one GitHub user's activity for the current UTC
// day through the GitHub tool backend and renders it as a fixed-shape text
// report for Slack.
package summary

// Item is a pull request or issue reference.
type Item struct {
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Commit is a retained commit. Message holds the first line only.
type Commit struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
}

// BranchUpdate records a branch whose tip commit qualified for the day.
type BranchUpdate struct {
	Name          string `json:"name"`
	CommitMessage string `json:"commit_message"`
}

// Report aggregates the six activity collections for one invocation.
// It is owned by a single call and never shared across invocations.
type Report struct {
	PRsCreated     []Item
	PRsMerged      []Item
	IssuesCreated  []Item
	IssuesClosed   []Item
	CommitsByRepo  map[string][]Commit
	BranchesByRepo map[string][]BranchUpdate
}

func newReport() *Report {
	return &Report{
		CommitsByRepo:  make(map[string][]Commit),
		BranchesByRepo: make(map[string][]BranchUpdate),
	}
}
