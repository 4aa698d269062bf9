package analysis

import (
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
)

const weekKeyLayout = "2006-01-02"

// * WeekStart returns the Monday 00:00 UTC of the ISO week containing t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// * BucketByWeek counts commits per calendar week. Commits without a
// * parseable timestamp are excluded here only; they still count towards
// * the other aggregations.
func BucketByWeek(commits []models.CommitRecord) map[string]int {
	weekly := make(map[string]int)
	for _, c := range commits {
		if !c.HasTimestamp() {
			continue
		}
		key := WeekStart(c.Timestamp).Format(weekKeyLayout)
		weekly[key]++
	}
	return weekly
}

func ComputeChurn(commits []models.CommitRecord) map[string]models.ChurnTotals {
	churn := make(map[string]models.ChurnTotals)
	for _, c := range commits {
		for _, fc := range c.FileChanges {
			totals := churn[fc.Path]
			totals.Added += fc.LinesAdded
			totals.Deleted += fc.LinesDeleted
			churn[fc.Path] = totals
		}
	}
	return churn
}

// * ComputeBugMentions counts, per file, the bug-fix commits that touched
// * it. One increment per commit, not per changed line.
func ComputeBugMentions(commits []models.CommitRecord) map[string]int {
	bugs := make(map[string]int)
	for _, c := range commits {
		if !IsBugFixMessage(c.Message) {
			continue
		}
		for _, fc := range c.FileChanges {
			bugs[fc.Path]++
		}
	}
	return bugs
}

func IsBugFixMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "fix")
}

// * ComputeContributors counts commits per author display name; no identity folding by email
func ComputeContributors(commits []models.CommitRecord) map[string]int {
	contributors := make(map[string]int)
	for _, c := range commits {
		contributors[c.Author.Name]++
	}
	return contributors
}

type Result struct {
	WeeklyCounts map[string]int                `json:"weekly_counts"`
	Churn        map[string]models.ChurnTotals `json:"churn"`
	BugMentions  map[string]int                `json:"bug_mentions"`
	Contributors map[string]int                `json:"contributors"`
}

// * Run executes all four aggregations over the records that pass validation
func Run(commits []models.CommitRecord) *Result {
	valid := Validate(commits)

	return &Result{
		WeeklyCounts: BucketByWeek(valid),
		Churn:        ComputeChurn(valid),
		BugMentions:  ComputeBugMentions(valid),
		Contributors: ComputeContributors(valid),
	}
}
