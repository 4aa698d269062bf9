package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/pkg/errors"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type PostgresDB struct {
	db *sql.DB
}

func NewPostgresDB(url string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to open database connection",
			"Could not initialize database connection",
			err,
			errors.LevelError,
		)
	}

	// * Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// * Verify connection
	if err := db.Ping(); err != nil {
		return nil, errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to verify database connection",
			"Database ping failed",
			err,
			errors.LevelError,
		)
	}

	logger.Info("connected to database successfully 🎉")
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Migrate() error {
	driver, err := postgres.WithInstance(p.db, &postgres.Config{})
	if err != nil {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to create migration driver",
			"Could not initialize migration driver instance",
			err,
			errors.LevelError,
		)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to create migration instance",
			"Could not create migration instance with database",
			err,
			errors.LevelError,
		)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to run migrations",
			"Migration up operation failed",
			err,
			errors.LevelError,
		)
	}

	return nil
}

func (p *PostgresDB) Close() error {
	if err := p.db.Close(); err != nil {
		return errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to close database connection",
			"Error while closing database connection",
			err,
			errors.LevelWarning,
		)
	}
	return nil
}

func (p *PostgresDB) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(
			"DB_TRANSACTION_ERROR",
			"Failed to begin transaction",
			"Could not start database transaction",
			err,
			errors.LevelError,
		)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.New(
				"DB_TRANSACTION_ERROR",
				"Transaction failed and rollback encountered error",
				"Transaction error with additional rollback failure",
				fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr),
				errors.LevelError,
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.New(
			"DB_TRANSACTION_ERROR",
			"Failed to commit transaction",
			"Error while committing transaction",
			err,
			errors.LevelError,
		)
	}

	return nil
}

const upsertRepositoryQuery = `
	INSERT INTO repositories (
		name, description, url, language, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT(name) DO UPDATE SET
		description = EXCLUDED.description,
		url = EXCLUDED.url,
		language = EXCLUDED.language,
		updated_at = EXCLUDED.updated_at
	RETURNING id, last_synced_at
`

func (p *PostgresDB) UpsertRepository(ctx context.Context, repo *models.Repository) error {
	row := p.db.QueryRowContext(ctx, upsertRepositoryQuery,
		repo.Name, repo.Description, repo.URL, repo.Language,
		repo.CreatedAt, repo.UpdatedAt,
	)
	return scanUpsertedRepository(row, repo)
}

func scanUpsertedRepository(row *sql.Row, repo *models.Repository) error {
	var lastSynced sql.NullTime
	if err := row.Scan(&repo.ID, &lastSynced); err != nil {
		return errors.New(
			"DB_REPOSITORY_ERROR",
			"Failed to upsert repository",
			fmt.Sprintf("Could not upsert repository '%s'", repo.Name),
			err,
			errors.LevelError,
		)
	}

	if lastSynced.Valid {
		repo.LastSyncedAt = &lastSynced.Time
	}
	return nil
}

func (p *PostgresDB) GetRepository(ctx context.Context, name string) (*models.Repository, error) {
	query := `
		SELECT id, name, description, url, language, created_at, updated_at, last_synced_at
		FROM repositories
		WHERE name = $1
	`

	row := p.db.QueryRowContext(ctx, query, name)

	var repo models.Repository
	var lastSynced sql.NullTime

	err := row.Scan(
		&repo.ID, &repo.Name, &repo.Description, &repo.URL, &repo.Language,
		&repo.CreatedAt, &repo.UpdatedAt, &lastSynced,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(
				"DB_REPOSITORY_NOT_FOUND",
				"Repository not found",
				fmt.Sprintf("Repository '%s' does not exist", name),
				err,
				errors.LevelInfo,
			)
		}
		return nil, errors.New(
			"DB_REPOSITORY_ERROR",
			"Failed to fetch repository",
			fmt.Sprintf("Could not fetch repository '%s'", name),
			err,
			errors.LevelError,
		)
	}

	if lastSynced.Valid {
		repo.LastSyncedAt = &lastSynced.Time
	}

	return &repo, nil
}

func (p *PostgresDB) GetAllRepositories(ctx context.Context) ([]*models.Repository, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name FROM repositories`)
	if err != nil {
		return nil, errors.New(
			"DB_REPOSITORY_ERROR",
			"Failed to list repositories",
			"Could not query the repositories table",
			err,
			errors.LevelError,
		)
	}
	defer rows.Close()

	var repos []*models.Repository
	for rows.Next() {
		var r models.Repository
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, errors.New(
				"DB_REPOSITORY_ERROR",
				"Failed to scan repository",
				"Error while scanning repository row",
				err,
				errors.LevelError,
			)
		}
		repos = append(repos, &r)
	}

	return repos, rows.Err()
}

func (p *PostgresDB) UpdateRepository(ctx context.Context, repo *models.Repository) error {
	query := `
		UPDATE repositories
		SET last_synced_at = $1
		WHERE id = $2
	`

	_, err := p.db.ExecContext(ctx, query, repo.LastSyncedAt, repo.ID)
	if err != nil {
		return errors.New(
			"DB_REPOSITORY_ERROR",
			"Failed to update repository",
			fmt.Sprintf("Could not update repository '%d'", repo.ID),
			err,
			errors.LevelError,
		)
	}

	return nil
}

const upsertReportQuery = `
	INSERT INTO reports (repository_id, metric, payload, generated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT(repository_id, metric) DO UPDATE SET
		payload = EXCLUDED.payload,
		generated_at = EXCLUDED.generated_at
`

func (p *PostgresDB) UpsertReport(ctx context.Context, report *models.Report) error {
	_, err := p.db.ExecContext(ctx, upsertReportQuery,
		report.RepositoryID, report.Metric, report.Payload, report.GeneratedAt,
	)
	if err != nil {
		return errors.New(
			"DB_REPORT_ERROR",
			"Failed to upsert report",
			fmt.Sprintf("Could not upsert %s report for repository '%d'", report.Metric, report.RepositoryID),
			err,
			errors.LevelError,
		)
	}
	return nil
}

func (p *PostgresDB) GetReport(ctx context.Context, repoName, metric string) (*models.Report, error) {
	query := `
		SELECT rp.id, rp.repository_id, rp.metric, rp.payload, rp.generated_at
		FROM reports rp
		JOIN repositories r ON rp.repository_id = r.id
		WHERE r.name = $1 AND rp.metric = $2
	`

	row := p.db.QueryRowContext(ctx, query, repoName, metric)

	var report models.Report
	err := row.Scan(&report.ID, &report.RepositoryID, &report.Metric,
		&report.Payload, &report.GeneratedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(
				"DB_REPORT_NOT_FOUND",
				"Report not found",
				fmt.Sprintf("No %s report exists for repository '%s'; run an analysis first", metric, repoName),
				err,
				errors.LevelInfo,
			)
		}
		return nil, errors.New(
			"DB_REPORT_ERROR",
			"Failed to fetch report",
			fmt.Sprintf("Could not fetch %s report for repository '%s'", metric, repoName),
			err,
			errors.LevelError,
		)
	}

	return &report, nil
}

func (p *PostgresDB) ResetRepository(ctx context.Context, repoName string, since time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM reports
		WHERE repository_id = (
			SELECT id FROM repositories WHERE name = $1
		)
	`, repoName)
	if err != nil {
		return errors.New(
			"DB_RESET_ERROR",
			"Failed to delete reports",
			fmt.Sprintf("Could not delete reports for repository '%s'", repoName),
			err,
			errors.LevelError,
		)
	}

	_, err = p.db.ExecContext(ctx, `
		UPDATE repositories
		SET last_synced_at = $1
		WHERE name = $2
	`, since, repoName)
	if err != nil {
		return errors.New(
			"DB_RESET_ERROR",
			"Failed to update repository",
			fmt.Sprintf("Could not update last synced time for repository '%s'", repoName),
			err,
			errors.LevelError,
		)
	}

	return nil
}

// * Transaction versions of methods for use with WithTransaction
func (p *PostgresDB) UpsertRepositoryTx(ctx context.Context, tx *sql.Tx, repo *models.Repository) error {
	row := tx.QueryRowContext(ctx, upsertRepositoryQuery,
		repo.Name, repo.Description, repo.URL, repo.Language,
		repo.CreatedAt, repo.UpdatedAt,
	)
	return scanUpsertedRepository(row, repo)
}

func (p *PostgresDB) UpsertReportTx(ctx context.Context, tx *sql.Tx, report *models.Report) error {
	_, err := tx.ExecContext(ctx, upsertReportQuery,
		report.RepositoryID, report.Metric, report.Payload, report.GeneratedAt,
	)
	if err != nil {
		return errors.New(
			"DB_REPORT_ERROR",
			"Failed to upsert report in transaction",
			fmt.Sprintf("Could not upsert %s report in transaction", report.Metric),
			err,
			errors.LevelError,
		)
	}
	return nil
}

func (p *PostgresDB) UpdateRepositoryTx(ctx context.Context, tx *sql.Tx, repo *models.Repository) error {
	query := `
		UPDATE repositories
		SET last_synced_at = $1
		WHERE id = $2
	`

	_, err := tx.ExecContext(ctx, query, repo.LastSyncedAt, repo.ID)
	if err != nil {
		return errors.New(
			"DB_REPOSITORY_ERROR",
			"Failed to update repository in transaction",
			fmt.Sprintf("Could not update repository '%d' in transaction", repo.ID),
			err,
			errors.LevelError,
		)
	}

	return nil
}
