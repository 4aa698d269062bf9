package gitlocal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/pkg/errors"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
)

type Source struct {
	cloneDir string
	horizon  time.Duration
}

// * NewSource creates a local history source; horizonYears bounds how far
// * back the initial extraction goes, 0 means ten years
func NewSource(cloneDir string, horizonYears int) (*Source, error) {
	if horizonYears <= 0 {
		horizonYears = 10
	}
	if err := os.MkdirAll(cloneDir, 0o755); err != nil {
		return nil, errors.New(
			"CLONE_DIR_ERROR",
			"Failed to create clone directory",
			fmt.Sprintf("Could not create clone cache directory '%s'", cloneDir),
			err,
			errors.LevelError,
		)
	}
	return &Source{
		cloneDir: cloneDir,
		horizon:  time.Duration(horizonYears) * 365 * 24 * time.Hour,
	}, nil
}

func (s *Source) repoPath(owner, name string) string {
	return filepath.Join(s.cloneDir, owner+"_"+name)
}

// * openOrClone opens an existing clone and fetches updates, or clones
// * fresh when the cache directory has no repository yet
func (s *Source) openOrClone(ctx context.Context, owner, name string) (*git.Repository, error) {
	path := s.repoPath(owner, name)
	url := fmt.Sprintf("https://github.com/%s/%s.git", owner, name)

	repo, err := git.PlainOpen(path)
	if err == nil {
		logger.Info("Updating existing clone of %s/%s", owner, name)
		fetchErr := repo.FetchContext(ctx, &git.FetchOptions{})
		if fetchErr != nil && fetchErr != git.NoErrAlreadyUpToDate {
			logger.Warn("fetch failed for %s/%s, analyzing cached history: %v", owner, name, fetchErr)
		}
		return repo, nil
	}

	if err != git.ErrRepositoryNotExists {
		return nil, errors.New(
			"CLONE_ERROR",
			"Failed to open repository clone",
			fmt.Sprintf("Could not open the cached clone at '%s'", path),
			err,
			errors.LevelError,
		)
	}

	logger.Info("Cloning %s", url)
	repo, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{URL: url})
	if err != nil {
		return nil, errors.New(
			"CLONE_ERROR",
			"Failed to clone repository",
			fmt.Sprintf("Could not clone '%s' into '%s'", url, path),
			err,
			errors.LevelError,
		)
	}
	return repo, nil
}

func (s *Source) FetchCommits(ctx context.Context, owner, name string, since time.Time) ([]models.CommitRecord, error) {
	repo, err := s.openOrClone(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	if since.IsZero() {
		since = time.Now().Add(-s.horizon)
	}

	iter, err := repo.Log(&git.LogOptions{Since: &since})
	if err != nil {
		return nil, errors.New(
			"HISTORY_ERROR",
			"Failed to walk commit history",
			fmt.Sprintf("Could not iterate the log of '%s/%s'", owner, name),
			err,
			errors.LevelError,
		)
	}
	defer iter.Close()

	var records []models.CommitRecord
	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		records = append(records, convertCommit(c))
		return nil
	})
	if err != nil {
		return nil, errors.New(
			"HISTORY_ERROR",
			"Failed to walk commit history",
			fmt.Sprintf("Commit walk of '%s/%s' aborted", owner, name),
			err,
			errors.LevelError,
		)
	}

	logger.Info("Extracted %d commits from local clone of %s/%s", len(records), owner, name)
	return records, nil
}

func convertCommit(c *object.Commit) models.CommitRecord {
	when := c.Author.When.UTC()
	record := models.CommitRecord{
		ID: c.Hash.String(),
		Author: models.Author{
			Name:  c.Author.Name,
			Email: c.Author.Email,
		},
		Timestamp:   when,
		RawDate:     when.Format(time.RFC3339),
		Message:     strings.TrimSpace(c.Message),
		FileChanges: []models.FileChange{},
	}

	// * Stats need a diff against the first parent; when that fails
	// * (shallow history, broken objects) keep the commit without changes
	stats, err := c.Stats()
	if err != nil {
		logger.Debug("no stats for commit %s: %v", record.ID, err)
		return record
	}

	for _, st := range stats {
		record.FileChanges = append(record.FileChanges, models.FileChange{
			Path:         st.Name,
			LinesAdded:   st.Addition,
			LinesDeleted: st.Deletion,
		})
	}
	return record
}
