package models

import "time"

// * Metric names for persisted reports; they double as the report file
// * names written beside the snapshot
const (
	MetricCommitFrequency = "commit_frequency"
	MetricCodeChurn       = "code_churn"
	MetricBugProneFiles   = "bug_prone_files"
	MetricTopContributors = "top_contributors"
)

type ChurnTotals struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

type FileChurn struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

func (f FileChurn) TotalChanges() int {
	return f.Added + f.Deleted
}

type FileBugCount struct {
	Path     string `json:"path"`
	BugFixes int    `json:"bug_fixes"`
}

// * Report is one persisted analysis result for a repository
type Report struct {
	ID           int       `json:"id"`
	RepositoryID int       `json:"repository_id"`
	Metric       string    `json:"metric"`
	Payload      []byte    `json:"-"`
	GeneratedAt  time.Time `json:"generated_at"`
}
