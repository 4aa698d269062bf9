package worker

import (
	"context"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/service"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
)

// * SyncWorker syncs new commits and re-runs the aggregations for one
// * repository on every tick
type SyncWorker struct {
	service  *service.AnalysisService
	interval time.Duration
	owner    string
	repo     string
}

func NewSyncWorker(service *service.AnalysisService, interval time.Duration, owner, repo string) *SyncWorker {
	return &SyncWorker{
		service:  service,
		interval: interval,
		owner:    owner,
		repo:     repo,
	}
}

func (w *SyncWorker) Run(ctx context.Context) {
	if err := w.collect(ctx, time.Time{}); err != nil {
		logger.Error("initial collection failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// * Get last sync time from the registry
			fullRepoName := w.owner + "/" + w.repo
			repo, err := w.service.GetRepository(ctx, fullRepoName)
			if err != nil {
				logger.Error("failed to get repository: %v", err)
				continue
			}

			var since time.Time
			if repo != nil && repo.LastSyncedAt != nil {
				since = *repo.LastSyncedAt
			}

			if err := w.collect(ctx, since); err != nil {
				logger.Error("collection failed: %v", err)
			} else {
				logger.Info("successfully refreshed repository %s", fullRepoName)
			}

		case <-ctx.Done():
			logger.Info("stopping sync worker")
			return
		}
	}
}

func (w *SyncWorker) collect(ctx context.Context, since time.Time) error {
	if err := w.service.SyncRepository(ctx, w.owner, w.repo, since); err != nil {
		return err
	}
	return w.service.AnalyzeRepository(ctx, w.owner, w.repo)
}
