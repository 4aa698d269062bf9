package models

import (
	"context"
	"database/sql"
	"time"
)

// * This interface defines all db operations needed by the application
type Database interface {
	// * Repository operations
	UpsertRepository(ctx context.Context, repo *Repository) error
	GetRepository(ctx context.Context, name string) (*Repository, error)
	GetAllRepositories(ctx context.Context) ([]*Repository, error)
	UpdateRepository(ctx context.Context, repo *Repository) error
	ResetRepository(ctx context.Context, repoName string, since time.Time) error

	// * Report operations
	UpsertReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, repoName, metric string) (*Report, error)

	// * Transaction support
	WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error
	UpsertRepositoryTx(ctx context.Context, tx *sql.Tx, repo *Repository) error
	UpsertReportTx(ctx context.Context, tx *sql.Tx, report *Report) error
	UpdateRepositoryTx(ctx context.Context, tx *sql.Tx, repo *Repository) error
}
