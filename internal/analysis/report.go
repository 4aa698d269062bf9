package analysis

import (
	"sort"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
)

// * TopChurnFiles ranks files by total changed lines, descending. Ties
// * break on path so the ordering is stable; a limit <= 0 returns all.
func TopChurnFiles(churn map[string]models.ChurnTotals, limit int) []models.FileChurn {
	ranked := make([]models.FileChurn, 0, len(churn))
	for path, totals := range churn {
		ranked = append(ranked, models.FileChurn{
			Path:    path,
			Added:   totals.Added,
			Deleted: totals.Deleted,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalChanges() != ranked[j].TotalChanges() {
			return ranked[i].TotalChanges() > ranked[j].TotalChanges()
		}
		return ranked[i].Path < ranked[j].Path
	})

	return clamp(ranked, limit)
}

func TopBugProneFiles(bugs map[string]int, limit int) []models.FileBugCount {
	ranked := make([]models.FileBugCount, 0, len(bugs))
	for path, count := range bugs {
		ranked = append(ranked, models.FileBugCount{Path: path, BugFixes: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].BugFixes != ranked[j].BugFixes {
			return ranked[i].BugFixes > ranked[j].BugFixes
		}
		return ranked[i].Path < ranked[j].Path
	})

	return clamp(ranked, limit)
}

func TopContributors(contributors map[string]int, limit int) []models.AuthorCommitCount {
	ranked := make([]models.AuthorCommitCount, 0, len(contributors))
	for name, count := range contributors {
		ranked = append(ranked, models.AuthorCommitCount{AuthorName: name, CommitCount: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CommitCount != ranked[j].CommitCount {
			return ranked[i].CommitCount > ranked[j].CommitCount
		}
		return ranked[i].AuthorName < ranked[j].AuthorName
	})

	return clamp(ranked, limit)
}

func clamp[T any](ranked []T, limit int) []T {
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
