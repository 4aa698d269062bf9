package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepository(t *testing.T) {
	owner, name, err := ParseRepository("golang/go")
	require.NoError(t, err)
	assert.Equal(t, "golang", owner)
	assert.Equal(t, "go", name)

	for _, bad := range []string{"", "golang", "golang/go/src", "/go", "golang/"} {
		_, _, err := ParseRepository(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLoadConfiguration_Defaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("DB_URL", "postgres://localhost/insights")
	t.Setenv("REPOSITORY", "golang/go")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("SNAPSHOT_DIR", "")
	t.Setenv("HISTORY_SOURCE", "")
	t.Setenv("CLONE_DIR", "")
	t.Setenv("HISTORY_YEARS", "")

	cfg, err := LoadConfiguration()
	require.NoError(t, err)
	assert.Equal(t, "1h", cfg.SyncInterval)
	assert.Equal(t, "snapshots", cfg.SnapshotDir)
	assert.Equal(t, SourceGitHub, cfg.HistorySource)
	assert.Equal(t, "clones", cfg.CloneDir)
	assert.Equal(t, 10, cfg.HistoryYears)
}

func TestLoadConfiguration_TokenOptionalForLocalSource(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("DB_URL", "postgres://localhost/insights")
	t.Setenv("REPOSITORY", "golang/go")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("HISTORY_SOURCE", "local")

	cfg, err := LoadConfiguration()
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, cfg.HistorySource)

	t.Setenv("HISTORY_SOURCE", "github")
	_, err = LoadConfiguration()
	assert.Error(t, err)
}

func TestLoadConfiguration_RejectsUnknownSource(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("DB_URL", "postgres://localhost/insights")
	t.Setenv("REPOSITORY", "golang/go")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("HISTORY_SOURCE", "svn")

	_, err := LoadConfiguration()
	assert.Error(t, err)
}
