package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
	"github.com/joho/godotenv"
)

// * History source selectors
const (
	SourceGitHub = "github"
	SourceLocal  = "local"
)

type Config struct {
	GitHubToken   string
	DBURL         string
	SyncInterval  string
	Repository    string
	RabbitMQURL   string
	SnapshotDir   string
	HistorySource string
	CloneDir      string
	HistoryYears  int
}

// * LoadConfiguration reads the configuration from the .env file and returns a pointer to a Config
func LoadConfiguration() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		DBURL:         os.Getenv("DB_URL"),
		SyncInterval:  os.Getenv("SYNC_INTERVAL"),
		Repository:    os.Getenv("REPOSITORY"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		SnapshotDir:   os.Getenv("SNAPSHOT_DIR"),
		HistorySource: os.Getenv("HISTORY_SOURCE"),
		CloneDir:      os.Getenv("CLONE_DIR"),
	}

	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is required")
	}

	if cfg.SyncInterval == "" {
		cfg.SyncInterval = "1h"
	}

	if cfg.Repository == "" {
		return nil, errors.New("REPOSITORY is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("RABBITMQ_URL is required")
	}

	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = "snapshots"
	}

	if cfg.HistorySource == "" {
		cfg.HistorySource = SourceGitHub
	}
	if cfg.HistorySource != SourceGitHub && cfg.HistorySource != SourceLocal {
		return nil, fmt.Errorf("HISTORY_SOURCE must be %q or %q", SourceGitHub, SourceLocal)
	}

	if cfg.HistorySource == SourceGitHub && cfg.GitHubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is required when HISTORY_SOURCE is github")
	}

	if cfg.CloneDir == "" {
		cfg.CloneDir = "clones"
	}

	if years := os.Getenv("HISTORY_YEARS"); years != "" {
		parsed, err := strconv.Atoi(years)
		if err != nil || parsed < 1 {
			return nil, errors.New("HISTORY_YEARS must be a positive integer")
		}
		cfg.HistoryYears = parsed
	} else {
		cfg.HistoryYears = 10
	}

	logger.Info("✅ env content loaded successfully 🎉")
	return cfg, nil
}

// * ParseRepository takes a string in the format owner/name and returns the
// * owner and name as two separate strings. If the string does not match
// * the expected format, an error is returned.
func ParseRepository(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository should be in format owner/name")
	}
	return parts[0], parts[1], nil
}
