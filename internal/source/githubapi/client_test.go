package githubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	originalBaseURL := baseURL
	baseURL = server.URL
	t.Cleanup(func() { baseURL = originalBaseURL })

	return NewClient("test-token")
}

func TestNewClient(t *testing.T) {
	token := "test-token"
	client := NewClient(token)

	assert.NotNil(t, client)
	assert.Equal(t, token, client.token)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_makeRequest(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		validateReq func(t *testing.T, r *http.Request)
	}{
		{
			name:  "successful request with token",
			token: "test-token",
			validateReq: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
				assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
				assert.Equal(t, "GET", r.Method)
			},
		},
		{
			name:  "successful request without token",
			token: "",
			validateReq: func(t *testing.T, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))
				assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.validateReq(t, r)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := NewClient(tt.token)
			originalBaseURL := baseURL
			baseURL = server.URL
			defer func() { baseURL = originalBaseURL }()

			resp, err := client.makeRequest(context.Background(), "GET", "/test")
			require.NoError(t, err)
			require.NotNil(t, resp)
			resp.Body.Close()
		})
	}
}

func TestClient_GetRepository(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/testowner/testrepo", r.URL.Path)
		json.NewEncoder(w).Encode(Repository{
			FullName:    "testowner/testrepo",
			Description: "a test repo",
			Language:    "Go",
		})
	})

	repo, err := client.GetRepository(context.Background(), "testowner", "testrepo")
	require.NoError(t, err)
	assert.Equal(t, "testowner/testrepo", repo.FullName)
	assert.Equal(t, "Go", repo.Language)
}

func TestClient_GetRepository_NotFound(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetRepository(context.Background(), "missing", "repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_NOT_FOUND")
}

func TestClient_ListCommits_SinglePage(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/commits", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))

		commit := Commit{SHA: "abc123"}
		commit.Commit.Message = "Fix crash"
		json.NewEncoder(w).Encode([]Commit{commit})
	})

	commits, err := client.ListCommits(context.Background(), "o", "r", CommitListOptions{Page: 2})
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].SHA)
}

func TestClient_ListCommits_AllPagesStopsWithoutNextLink(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			json.NewEncoder(w).Encode([]Commit{})
			return
		}
		json.NewEncoder(w).Encode([]Commit{{SHA: "only"}})
	})

	commits, err := client.ListCommits(context.Background(), "o", "r", CommitListOptions{})
	require.NoError(t, err)
	require.Len(t, commits, 1)
}

func TestSource_FetchCommits(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/commits/abc123"):
			commit := Commit{SHA: "abc123"}
			commit.Commit.Message = "Fix crash"
			commit.Commit.Author.Name = "alice"
			commit.Commit.Author.Email = "alice@example.com"
			commit.Commit.Author.Date = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
			commit.Files = []CommitFile{
				{Filename: "main.go", Additions: 3, Deletions: 1, Status: "modified"},
			}
			json.NewEncoder(w).Encode(commit)
		case strings.HasSuffix(r.URL.Path, "/commits"):
			commit := Commit{SHA: "abc123"}
			commit.Commit.Message = "Fix crash"
			commit.Commit.Author.Name = "alice"
			commit.Commit.Author.Date = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
			json.NewEncoder(w).Encode([]Commit{commit})
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	})

	src := NewSource(client)
	records, err := src.FetchCommits(context.Background(), "o", "r", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "abc123", record.ID)
	assert.Equal(t, "alice", record.Author.Name)
	assert.True(t, record.HasTimestamp())
	require.Len(t, record.FileChanges, 1)
	assert.Equal(t, "main.go", record.FileChanges[0].Path)
	assert.Equal(t, 3, record.FileChanges[0].LinesAdded)
	assert.Equal(t, 1, record.FileChanges[0].LinesDeleted)
}

func TestSource_FetchCommits_SkipsMissingDetail(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/commits/gone"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/commits"):
			json.NewEncoder(w).Encode([]Commit{{SHA: "gone"}})
		}
	})

	src := NewSource(client)
	records, err := src.FetchCommits(context.Background(), "o", "r", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
