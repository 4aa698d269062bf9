package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/pkg/errors"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
)

var (
	baseURL = "https://api.github.com"
)

type Client struct {
	httpClient *http.Client
	token      string
}

func NewClient(token string) *Client {
	rl := NewRateLimiter()

	client := &http.Client{
		Timeout:   30 * time.Second,
		Transport: rl.Middleware(http.DefaultTransport),
	}

	return &Client{
		httpClient: client,
		token:      token,
	}
}

func (c *Client) makeRequest(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, what string) error {
	resp, err := c.makeRequest(ctx, "GET", path)
	if err != nil {
		return errors.New(
			"GITHUB_API_ERROR",
			"Failed to fetch "+what+" from GitHub",
			fmt.Sprintf("Could not connect to GitHub API to retrieve %s", what),
			err,
			errors.LevelError,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.New(
			"GITHUB_NOT_FOUND",
			"Resource not found on GitHub",
			fmt.Sprintf("GitHub API has no %s at %s, or you don't have access to it", what, path),
			nil,
			errors.LevelInfo,
		)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.New(
			"GITHUB_API_ERROR",
			"Unexpected response from GitHub API",
			fmt.Sprintf("GitHub API returned status %d when fetching %s", resp.StatusCode, what),
			nil,
			errors.LevelError,
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(
			"GITHUB_API_ERROR",
			"Failed to read GitHub API response",
			fmt.Sprintf("Could not read the response body containing %s", what),
			err,
			errors.LevelError,
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.New(
			"GITHUB_API_ERROR",
			"Failed to parse GitHub API response",
			fmt.Sprintf("Could not understand the %s data returned by GitHub API", what),
			err,
			errors.LevelError,
		)
	}

	return nil
}

func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := c.getJSON(ctx, path, &repository, fmt.Sprintf("repository %s/%s", owner, repo)); err != nil {
		return nil, err
	}
	return &repository, nil
}

func (c *Client) ListCommits(ctx context.Context, owner, repo string, opts CommitListOptions) ([]*Commit, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits", owner, repo)

	queryParams := make(url.Values)

	if !opts.Since.IsZero() {
		sinceUTC := opts.Since.UTC()
		queryParams.Add("since", sinceUTC.Format(time.RFC3339))
	}

	if opts.Page > 0 {
		return c.fetchSinglePage(ctx, path, queryParams, opts)
	}
	return c.fetchAllPages(ctx, path, queryParams)
}

// * GetCommit fetches the per-commit detail, the only REST endpoint
// * carrying per-file addition/deletion stats
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error) {
	var commit Commit
	path := fmt.Sprintf("/repos/%s/%s/commits/%s", owner, repo, sha)
	if err := c.getJSON(ctx, path, &commit, fmt.Sprintf("commit %s", sha)); err != nil {
		return nil, err
	}
	return &commit, nil
}

func (c *Client) fetchSinglePage(ctx context.Context, path string, queryParams url.Values, opts CommitListOptions) ([]*Commit, error) {
	queryParams.Set("page", strconv.Itoa(opts.Page))
	if opts.PerPage > 0 {
		queryParams.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	path += "?" + queryParams.Encode()

	var commits []*Commit
	if err := c.getJSON(ctx, path, &commits, "commits"); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Client) fetchAllPages(ctx context.Context, path string, queryParams url.Values) ([]*Commit, error) {
	var allCommits []*Commit
	page := 1

	for {
		currentParams := make(url.Values)
		maps.Copy(currentParams, queryParams)
		currentParams.Set("page", strconv.Itoa(page))
		currentParams.Set("per_page", "100")

		currentPath := path + "?" + currentParams.Encode()

		resp, err := c.makeRequest(ctx, "GET", currentPath)
		if err != nil {
			return nil, errors.New(
				"GITHUB_API_ERROR",
				"Failed to fetch commits from GitHub",
				fmt.Sprintf("Could not connect to GitHub API to retrieve page %d of commits", page),
				err,
				errors.LevelError,
			)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, errors.New(
				"GITHUB_API_ERROR",
				"Failed to fetch commits from GitHub",
				fmt.Sprintf("GitHub API returned unexpected status code %d when fetching page %d of commits", resp.StatusCode, page),
				nil,
				errors.LevelError,
			)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, errors.New(
				"GITHUB_API_ERROR",
				"Failed to read commits from GitHub",
				fmt.Sprintf("Could not read the response body for page %d of commits", page),
				err,
				errors.LevelError,
			)
		}

		var commits []*Commit
		if err := json.Unmarshal(body, &commits); err != nil {
			return nil, errors.New(
				"GITHUB_API_ERROR",
				"Failed to parse commits from GitHub",
				fmt.Sprintf("Could not understand the commits data for page %d returned by GitHub API", page),
				err,
				errors.LevelError,
			)
		}

		if len(commits) == 0 {
			break
		}

		allCommits = append(allCommits, commits...)
		page++

		linkHeader := resp.Header.Get("Link")
		if !strings.Contains(linkHeader, `rel="next"`) {
			break
		}
	}

	logger.Info("Successfully fetched %d commits from GitHub", len(allCommits))
	return allCommits, nil
}

// * Source lists the commits, then resolves each one's file stats via the
// * detail endpoint
type Source struct {
	client *Client
}

func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) FetchCommits(ctx context.Context, owner, name string, since time.Time) ([]models.CommitRecord, error) {
	commits, err := s.client.ListCommits(ctx, owner, name, CommitListOptions{Since: since})
	if err != nil {
		return nil, err
	}

	records := make([]models.CommitRecord, 0, len(commits))
	for _, commit := range commits {
		detail, err := s.client.GetCommit(ctx, owner, name, commit.SHA)
		if err != nil {
			// * Commit listing and detail can disagree during a force
			// * push; skip the orphan rather than failing the whole fetch
			logger.Warn("skipping commit %s: %v", commit.SHA, err)
			continue
		}

		record := models.CommitRecord{
			ID: commit.SHA,
			Author: models.Author{
				Name:  commit.Commit.Author.Name,
				Email: commit.Commit.Author.Email,
			},
			Timestamp:   commit.Commit.Author.Date.UTC(),
			RawDate:     commit.Commit.Author.Date.UTC().Format(time.RFC3339),
			Message:     commit.Commit.Message,
			FileChanges: make([]models.FileChange, 0, len(detail.Files)),
		}

		for _, f := range detail.Files {
			record.FileChanges = append(record.FileChanges, models.FileChange{
				Path:         f.Filename,
				LinesAdded:   f.Additions,
				LinesDeleted: f.Deletions,
			})
		}

		records = append(records, record)
	}

	return records, nil
}
