package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/pkg/errors"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
)

const snapshotFile = "git_history.json"

// * Merge combines persisted and newly fetched commits, identified solely
// * by hash: an incoming hash already in the persisted list is dropped, and
// * duplicates within the incoming list keep their first occurrence. The
// * result keeps incoming-then-existing ordering.
func Merge(existing, incoming []models.CommitRecord) []models.CommitRecord {
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.ID] = struct{}{}
	}

	merged := make([]models.CommitRecord, 0, len(existing)+len(incoming))
	for _, c := range incoming {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}

	return append(merged, existing...)
}

// * Store reads and writes snapshots and report files, one directory per
// * repository. Callers must ensure a single writer per snapshot path.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to create snapshot directory",
			fmt.Sprintf("Could not create snapshot base directory '%s'", baseDir),
			err,
			errors.LevelError,
		)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) repoDir(repoName string) string {
	return filepath.Join(s.baseDir, strings.ReplaceAll(repoName, "/", "_"))
}

// * Load reads the snapshot for a repository. Missing and corrupt files
// * are both hard failures.
func (s *Store) Load(repoName string) ([]models.CommitRecord, error) {
	path := filepath.Join(s.repoDir(repoName), snapshotFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(
				"SNAPSHOT_NOT_FOUND",
				"Snapshot not found",
				fmt.Sprintf("No snapshot exists for repository '%s'; run a sync first", repoName),
				err,
				errors.LevelInfo,
			)
		}
		return nil, errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to read snapshot",
			fmt.Sprintf("Could not read snapshot file '%s'", path),
			err,
			errors.LevelError,
		)
	}

	var commits []models.CommitRecord
	if err := json.Unmarshal(data, &commits); err != nil {
		return nil, errors.New(
			"SNAPSHOT_CORRUPT",
			"Failed to parse snapshot",
			fmt.Sprintf("Snapshot file '%s' is not a valid commit history", path),
			err,
			errors.LevelError,
		)
	}

	return commits, nil
}

// * LoadOrEmpty yields an empty history for a never-synced repository instead of an error
func (s *Store) LoadOrEmpty(repoName string) ([]models.CommitRecord, error) {
	path := filepath.Join(s.repoDir(repoName), snapshotFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return s.Load(repoName)
}

func (s *Store) Save(repoName string, commits []models.CommitRecord) error {
	dir := s.repoDir(repoName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to create repository snapshot directory",
			fmt.Sprintf("Could not create directory '%s'", dir),
			err,
			errors.LevelError,
		)
	}

	if commits == nil {
		commits = []models.CommitRecord{}
	}

	data, err := json.MarshalIndent(commits, "", "    ")
	if err != nil {
		return errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to encode snapshot",
			fmt.Sprintf("Could not encode commit history for '%s'", repoName),
			err,
			errors.LevelError,
		)
	}

	return s.writeFile(filepath.Join(dir, snapshotFile), data)
}

// * SaveReport writes one report JSON beside the snapshot, named after the metric
func (s *Store) SaveReport(repoName, metric string, payload any) error {
	dir := s.repoDir(repoName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to create repository snapshot directory",
			fmt.Sprintf("Could not create directory '%s'", dir),
			err,
			errors.LevelError,
		)
	}

	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return errors.New(
			"REPORT_IO_ERROR",
			"Failed to encode report",
			fmt.Sprintf("Could not encode %s report for '%s'", metric, repoName),
			err,
			errors.LevelError,
		)
	}

	path := filepath.Join(dir, metric+".json")
	if err := s.writeFile(path, data); err != nil {
		return err
	}

	logger.Debug("report saved: %s", path)
	return nil
}

func (s *Store) Reset(repoName string) error {
	dir := s.repoDir(repoName)
	if err := os.RemoveAll(dir); err != nil {
		return errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to reset snapshot",
			fmt.Sprintf("Could not remove snapshot directory '%s'", dir),
			err,
			errors.LevelError,
		)
	}
	return nil
}

func (s *Store) writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to write snapshot file",
			fmt.Sprintf("Could not write '%s'", tmp),
			err,
			errors.LevelError,
		)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.New(
			"SNAPSHOT_IO_ERROR",
			"Failed to finalize snapshot file",
			fmt.Sprintf("Could not rename '%s' into place", tmp),
			err,
			errors.LevelError,
		)
	}
	return nil
}
