package analysis

import (
	"math/rand"
	"testing"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commit(id, author, date, message string, changes ...models.FileChange) models.CommitRecord {
	return models.CommitRecord{
		ID:          id,
		Author:      models.Author{Name: author, Email: author + "@example.com"},
		Timestamp:   models.ParseCommitDate(date),
		RawDate:     date,
		Message:     message,
		FileChanges: changes,
	}
}

func change(path string, added, deleted int) models.FileChange {
	return models.FileChange{Path: path, LinesAdded: added, LinesDeleted: deleted}
}

func TestWeekStart(t *testing.T) {
	// 2024-06-12 is a Wednesday; its ISO week starts Monday 2024-06-10
	wednesday := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), WeekStart(wednesday))

	monday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, WeekStart(monday))

	sunday := time.Date(2024, 6, 16, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, monday, WeekStart(sunday))
}

func TestBucketByWeek(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "one"),
		commit("a2", "alice", "2024-06-12T10:00:00Z", "two"),
		commit("a3", "bob", "2024-06-17T10:00:00Z", "three"),
		commit("a4", "bob", "not-a-date", "four"),
	}

	weekly := BucketByWeek(commits)

	assert.Equal(t, map[string]int{
		"2024-06-10": 2,
		"2024-06-17": 1,
	}, weekly)

	// * Sum of weekly counts equals the number of commits with a valid timestamp
	total := 0
	for _, n := range weekly {
		total += n
	}
	assert.Equal(t, 3, total)
}

func TestBucketByWeek_EmptyInput(t *testing.T) {
	assert.Empty(t, BucketByWeek(nil))
	assert.Empty(t, BucketByWeek([]models.CommitRecord{}))
}

func TestComputeChurn(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "Fix null pointer",
			change("X.java", 2, 1)),
		commit("a2", "alice", "2024-06-11T10:00:00Z", "Add feature",
			change("X.java", 5, 0)),
	}

	churn := ComputeChurn(commits)

	assert.Equal(t, models.ChurnTotals{Added: 7, Deleted: 1}, churn["X.java"])
}

func TestComputeChurn_OrderInvariant(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "a", change("x", 1, 2), change("y", 3, 0)),
		commit("a2", "bob", "2024-06-11T10:00:00Z", "b", change("x", 4, 1)),
		commit("a3", "carol", "2024-06-12T10:00:00Z", "c", change("z", 0, 7)),
		commit("a4", "dave", "2024-06-13T10:00:00Z", "d", change("y", 2, 2)),
	}

	expected := ComputeChurn(commits)

	shuffled := make([]models.CommitRecord, len(commits))
	copy(shuffled, commits)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assert.Equal(t, expected, ComputeChurn(shuffled))
}

func TestComputeChurn_RepeatedFileEntriesAccumulate(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "squash",
			change("x", 1, 1), change("x", 2, 3)),
	}

	assert.Equal(t, models.ChurnTotals{Added: 3, Deleted: 4}, ComputeChurn(commits)["x"])
}

func TestComputeBugMentions(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "Fix null pointer",
			change("X.java", 2, 1)),
		commit("a2", "alice", "2024-06-11T10:00:00Z", "Add feature",
			change("X.java", 5, 0)),
		commit("a3", "bob", "2024-06-12T10:00:00Z", "HOTFIX for prod",
			change("X.java", 1, 1), change("Y.java", 0, 2)),
	}

	bugs := ComputeBugMentions(commits)

	assert.Equal(t, 2, bugs["X.java"])
	assert.Equal(t, 1, bugs["Y.java"])
}

func TestComputeBugMentions_NoFixCommits(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "Add feature", change("x", 1, 0)),
		commit("a2", "bob", "2024-06-11T10:00:00Z", "Refactor", change("y", 2, 2)),
	}

	assert.Empty(t, ComputeBugMentions(commits))
}

func TestComputeBugMentions_FixCommitWithoutFiles(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "fix the build"),
	}

	assert.Empty(t, ComputeBugMentions(commits))
}

func TestIsBugFixMessage(t *testing.T) {
	assert.True(t, IsBugFixMessage("Fix null pointer"))
	assert.True(t, IsBugFixMessage("HOTFIX"))
	assert.True(t, IsBugFixMessage("prefix feature"))
	assert.False(t, IsBugFixMessage("Add feature"))
	assert.False(t, IsBugFixMessage(""))
}

func TestComputeContributors(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "one"),
		commit("a2", "alice", "2024-06-11T10:00:00Z", "two"),
		commit("a3", "bob", "2024-06-12T10:00:00Z", "three"),
	}

	assert.Equal(t, map[string]int{"alice": 2, "bob": 1}, ComputeContributors(commits))
}

func TestRun_SpecScenario(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "Fix null pointer",
			change("X.java", 2, 1)),
		commit("a2", "bob", "2024-06-11T10:00:00Z", "Add feature",
			change("X.java", 5, 0)),
	}

	result := Run(commits)
	require.NotNil(t, result)

	assert.Equal(t, models.ChurnTotals{Added: 7, Deleted: 1}, result.Churn["X.java"])
	assert.Equal(t, 1, result.BugMentions["X.java"])

	totalCommits := 0
	for _, n := range result.Contributors {
		totalCommits += n
	}
	assert.Equal(t, 2, totalCommits)
}

func TestRun_InvalidTimestampOnlyGatesWeeklyCounts(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "not-a-date", "fix crash", change("x", 1, 1)),
	}

	result := Run(commits)

	assert.Empty(t, result.WeeklyCounts)
	assert.Equal(t, models.ChurnTotals{Added: 1, Deleted: 1}, result.Churn["x"])
	assert.Equal(t, 1, result.BugMentions["x"])
	assert.Equal(t, 1, result.Contributors["alice"])
}

func TestRun_EmptyInput(t *testing.T) {
	result := Run(nil)

	assert.Empty(t, result.WeeklyCounts)
	assert.Empty(t, result.Churn)
	assert.Empty(t, result.BugMentions)
	assert.Empty(t, result.Contributors)
}

func TestValidate_QuarantinesMalformedRecords(t *testing.T) {
	commits := []models.CommitRecord{
		commit("a1", "alice", "2024-06-10T10:00:00Z", "ok"),
		commit("", "bob", "2024-06-11T10:00:00Z", "missing hash"),
		commit("a3", "", "2024-06-12T10:00:00Z", "missing author"),
	}

	valid := Validate(commits)

	require.Len(t, valid, 1)
	assert.Equal(t, "a1", valid[0].ID)
}
