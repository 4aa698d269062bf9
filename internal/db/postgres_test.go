package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestUpsertRepository(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	repo := &models.Repository{
		Name:        "test/repo",
		Description: "Test Repo",
		URL:         "https://github.com/test/repo",
		Language:    "Go",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	rows := sqlmock.NewRows([]string{"id", "last_synced_at"}).
		AddRow(1, nil)

	mock.ExpectQuery("INSERT INTO repositories").
		WithArgs(
			repo.Name, repo.Description, repo.URL, repo.Language,
			repo.CreatedAt, repo.UpdatedAt,
		).WillReturnRows(rows)

	pg := &PostgresDB{db: mockDB}
	err = pg.UpsertRepository(context.Background(), repo)
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRepository(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "url", "language", "created_at", "updated_at", "last_synced_at",
	}).AddRow(1, "test/repo", "desc", "url", "Go", now, now, nil)

	mock.ExpectQuery("SELECT id, name, description, url, language").
		WithArgs("test/repo").
		WillReturnRows(rows)

	pg := &PostgresDB{db: mockDB}
	repo, err := pg.GetRepository(context.Background(), "test/repo")
	assert.NoError(t, err)
	assert.Equal(t, "test/repo", repo.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRepository_NotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT id, name, description, url, language").
		WithArgs("missing/repo").
		WillReturnError(sql.ErrNoRows)

	pg := &PostgresDB{db: mockDB}
	_, err = pg.GetRepository(context.Background(), "missing/repo")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_REPOSITORY_NOT_FOUND")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertReport(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	report := &models.Report{
		RepositoryID: 1,
		Metric:       models.MetricCodeChurn,
		Payload:      []byte(`{"main.go":{"added":3,"deleted":1}}`),
		GeneratedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO reports").
		WithArgs(report.RepositoryID, report.Metric, report.Payload, report.GeneratedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pg := &PostgresDB{db: mockDB}
	err = pg.UpsertReport(context.Background(), report)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "repository_id", "metric", "payload", "generated_at"}).
		AddRow(1, 1, models.MetricTopContributors, []byte(`{"alice":2}`), now)

	mock.ExpectQuery("SELECT rp.id, rp.repository_id, rp.metric").
		WithArgs("test/repo", models.MetricTopContributors).
		WillReturnRows(rows)

	pg := &PostgresDB{db: mockDB}
	report, err := pg.GetReport(context.Background(), "test/repo", models.MetricTopContributors)
	assert.NoError(t, err)
	assert.Equal(t, models.MetricTopContributors, report.Metric)
	assert.JSONEq(t, `{"alice":2}`, string(report.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport_NotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT rp.id, rp.repository_id, rp.metric").
		WithArgs("test/repo", models.MetricCodeChurn).
		WillReturnError(sql.ErrNoRows)

	pg := &PostgresDB{db: mockDB}
	_, err = pg.GetReport(context.Background(), "test/repo", models.MetricCodeChurn)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_REPORT_NOT_FOUND")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetRepository(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	since := time.Now()
	mock.ExpectExec("DELETE FROM reports").
		WithArgs("test/repo").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("UPDATE repositories").
		WithArgs(since, "test/repo").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pg := &PostgresDB{db: mockDB}
	err = pg.ResetRepository(context.Background(), "test/repo", since)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_Commit(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	pg := &PostgresDB{db: mockDB}
	err = pg.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_Rollback(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	pg := &PostgresDB{db: mockDB}
	txErr := errors.New("boom")
	err = pg.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		return txErr
	})
	assert.ErrorIs(t, err, txErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
