package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/analysis"
	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/internal/snapshot"
	"github.com/KOFI-GYIMAH/git-insights/internal/source"
	"github.com/KOFI-GYIMAH/git-insights/internal/source/githubapi"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
)

// * MetadataClient fetches repository metadata for the registry; nil when
// * the history source has no metadata endpoint
type MetadataClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*githubapi.Repository, error)
}

type AnalysisService struct {
	source source.Source
	meta   MetadataClient
	db     models.Database
	store  *snapshot.Store
}

func NewAnalysisService(src source.Source, meta MetadataClient, db models.Database, store *snapshot.Store) *AnalysisService {
	return &AnalysisService{
		source: src,
		meta:   meta,
		db:     db,
		store:  store,
	}
}

func (s *AnalysisService) GetRepository(ctx context.Context, name string) (*models.Repository, error) {
	return s.db.GetRepository(ctx, name)
}

func (s *AnalysisService) ListAllRepositories(ctx context.Context) ([]*models.Repository, error) {
	return s.db.GetAllRepositories(ctx)
}

// * SyncRepository fetches commits after `since`, merges them into the
// * persisted snapshot and records the sync time in the registry
func (s *AnalysisService) SyncRepository(ctx context.Context, owner, name string, since time.Time) error {
	fullName := owner + "/" + name
	logger.Info("Syncing repository %s...", fullName)

	dbRepo, err := s.registryEntry(ctx, owner, name)
	if err != nil {
		return err
	}

	incoming, err := s.source.FetchCommits(ctx, owner, name, since)
	if err != nil {
		return fmt.Errorf("failed to fetch commits: %w", err)
	}

	existing, err := s.store.LoadOrEmpty(fullName)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	merged := snapshot.Merge(existing, incoming)
	if err := s.store.Save(fullName, merged); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	logger.Info("Merged %d fetched commits into snapshot for %s (%d total, %d new)",
		len(incoming), fullName, len(merged), len(merged)-len(existing))

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.db.UpsertRepositoryTx(ctx, tx, dbRepo); err != nil {
			return fmt.Errorf("failed to save repository: %w", err)
		}

		now := time.Now()
		dbRepo.LastSyncedAt = &now
		return s.db.UpdateRepositoryTx(ctx, tx, dbRepo)
	})
}

func (s *AnalysisService) registryEntry(ctx context.Context, owner, name string) (*models.Repository, error) {
	fullName := owner + "/" + name
	now := time.Now()

	entry := &models.Repository{
		Name:      fullName,
		URL:       fmt.Sprintf("https://github.com/%s", fullName),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.meta == nil {
		return entry, nil
	}

	repo, err := s.meta.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	entry.Name = repo.FullName
	entry.Description = repo.Description
	entry.URL = repo.HTMLURL
	entry.Language = repo.Language
	entry.CreatedAt = repo.CreatedAt
	entry.UpdatedAt = repo.UpdatedAt
	return entry, nil
}

// * AnalyzeRepository runs the four aggregations over the snapshot and
// * persists each result as a report file and a reports row
func (s *AnalysisService) AnalyzeRepository(ctx context.Context, owner, name string) error {
	fullName := owner + "/" + name

	commits, err := s.store.Load(fullName)
	if err != nil {
		return err
	}

	result := analysis.Run(commits)

	dbRepo, err := s.db.GetRepository(ctx, fullName)
	if err != nil {
		return err
	}

	reports := []struct {
		metric  string
		payload any
	}{
		{models.MetricCommitFrequency, result.WeeklyCounts},
		{models.MetricCodeChurn, result.Churn},
		{models.MetricBugProneFiles, result.BugMentions},
		{models.MetricTopContributors, result.Contributors},
	}

	now := time.Now()
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, r := range reports {
			if err := s.store.SaveReport(fullName, r.metric, r.payload); err != nil {
				return err
			}

			payload, err := json.Marshal(r.payload)
			if err != nil {
				return fmt.Errorf("failed to encode %s report: %w", r.metric, err)
			}

			report := &models.Report{
				RepositoryID: dbRepo.ID,
				Metric:       r.metric,
				Payload:      payload,
				GeneratedAt:  now,
			}
			if err := s.db.UpsertReportTx(ctx, tx, report); err != nil {
				return err
			}
		}

		logger.Info("Analysis complete for %s (%d commits)", fullName, len(commits))
		return nil
	})
}

func (s *AnalysisService) GetCommitFrequency(ctx context.Context, repoName string) (map[string]int, error) {
	var weekly map[string]int
	if err := s.loadReport(ctx, repoName, models.MetricCommitFrequency, &weekly); err != nil {
		return nil, err
	}
	return weekly, nil
}

func (s *AnalysisService) GetTopChurnFiles(ctx context.Context, repoName string, limit int) ([]models.FileChurn, error) {
	var churn map[string]models.ChurnTotals
	if err := s.loadReport(ctx, repoName, models.MetricCodeChurn, &churn); err != nil {
		return nil, err
	}
	return analysis.TopChurnFiles(churn, limit), nil
}

func (s *AnalysisService) GetBugProneFiles(ctx context.Context, repoName string, limit int) ([]models.FileBugCount, error) {
	var bugs map[string]int
	if err := s.loadReport(ctx, repoName, models.MetricBugProneFiles, &bugs); err != nil {
		return nil, err
	}
	return analysis.TopBugProneFiles(bugs, limit), nil
}

func (s *AnalysisService) GetTopContributors(ctx context.Context, repoName string, limit int) ([]models.AuthorCommitCount, error) {
	var contributors map[string]int
	if err := s.loadReport(ctx, repoName, models.MetricTopContributors, &contributors); err != nil {
		return nil, err
	}
	return analysis.TopContributors(contributors, limit), nil
}

func (s *AnalysisService) loadReport(ctx context.Context, repoName, metric string, out any) error {
	report, err := s.db.GetReport(ctx, repoName, metric)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(report.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s report for '%s': %w", metric, repoName, err)
	}
	return nil
}

func (s *AnalysisService) ResetCollection(ctx context.Context, owner, name string, since time.Time) error {
	fullName := owner + "/" + name

	if err := s.store.Reset(fullName); err != nil {
		return err
	}
	if err := s.db.ResetRepository(ctx, fullName, since); err != nil {
		return err
	}

	if err := s.SyncRepository(ctx, owner, name, since); err != nil {
		return err
	}
	return s.AnalyzeRepository(ctx, owner, name)
}
