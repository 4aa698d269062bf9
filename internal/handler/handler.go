package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/internal/queue"
	"github.com/KOFI-GYIMAH/git-insights/internal/service"
	"github.com/KOFI-GYIMAH/git-insights/internal/worker"
	"github.com/KOFI-GYIMAH/git-insights/pkg/errors"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
	"github.com/gorilla/mux"
)

type AnalysisHandler struct {
	service *service.AnalysisService
	queue   *queue.RabbitMQ
	ctx     context.Context
}

func NewAnalysisHandler(ctx context.Context, service *service.AnalysisService, q *queue.RabbitMQ) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		queue:   q,
		ctx:     ctx,
	}
}

func (h *AnalysisHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/repositories", h.addRepository).Methods("POST")
	r.HandleFunc("/repositories/{owner}/{name}", h.getRepository).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}/reports/commit-frequency", h.getCommitFrequency).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}/reports/code-churn", h.getCodeChurn).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}/reports/bug-prone-files", h.getBugProneFiles).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}/reports/top-contributors", h.getTopContributors).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}/analyze", h.enqueueAnalysis).Methods("POST")
	r.HandleFunc("/repositories/{owner}/{name}/reset-collection", h.resetCollection).Methods("POST")
}

func writeSuccess(w http.ResponseWriter, data interface{}, message ...string) {
	resp := APIResponse{
		Status: "success",
		Data:   data,
	}
	if len(message) > 0 {
		resp.Message = message[0]
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func repoVars(r *http.Request) (owner, name, fullName string) {
	vars := mux.Vars(r)
	owner = vars["owner"]
	name = vars["name"]
	return owner, name, owner + "/" + name
}

func limitParam(r *http.Request, fallback int) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		return fallback
	}
	return limit
}

// addRepository godoc
// @Summary Add a repository to analyze
// @Description Registers a GitHub repository, collects its history and starts periodic analysis
// @Tags Repository
// @Accept json
// @Produce json
// @Param repository body AddRepositoryRequest true "Repository to Add"
// @Success 201 {object} map[string]string
// @Failure 400 {string} string "Invalid request"
// @Failure 409 {string} string "Repository already monitored"
// @Failure 500 {string} string "Failed to sync repository"
// @Router /repositories [post]
func (h *AnalysisHandler) addRepository(w http.ResponseWriter, r *http.Request) {
	var req AddRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Owner == "" || req.Name == "" {
		http.Error(w, "owner and name are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	repoName := req.Owner + "/" + req.Name

	// * Check if repo already exists
	existingRepos, err := h.service.ListAllRepositories(ctx)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	for _, existing := range existingRepos {
		if existing.Name == repoName {
			logger.Info("Repository %s already exists", repoName)
			http.Error(w, "Repository already monitored", http.StatusConflict)
			return
		}
	}

	// * Collect and analyze the new repo
	if err := h.service.SyncRepository(ctx, req.Owner, req.Name, time.Time{}); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	if err := h.service.AnalyzeRepository(ctx, req.Owner, req.Name); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	// * Keep it fresh
	go func() {
		syncInterval, err := time.ParseDuration(os.Getenv("SYNC_INTERVAL"))
		if err != nil {
			syncInterval = time.Hour
		}
		sw := worker.NewSyncWorker(h.service, syncInterval, req.Owner, req.Name)
		sw.Run(h.ctx)
	}()

	w.WriteHeader(http.StatusCreated)
	writeSuccess(w, map[string]string{
		"message": "Repository successfully added and analysis started.",
	}, "Repository added")
}

// getRepository godoc
// @Summary Get Repository
// @Description Fetch repository metadata from the registry
// @Tags Repository
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Success 200 {object} models.Repository
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name} [get]
func (h *AnalysisHandler) getRepository(w http.ResponseWriter, r *http.Request) {
	_, _, fullName := repoVars(r)

	repository, err := h.service.GetRepository(r.Context(), fullName)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	logger.Info("Fetched repository %s", fullName)
	writeSuccess(w, repository, "Successfully fetched repository")
}

// getCommitFrequency godoc
// @Summary Get Commit Frequency
// @Description Weekly commit counts keyed by ISO week start date
// @Tags Reports
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Success 200 {object} map[string]int
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name}/reports/commit-frequency [get]
func (h *AnalysisHandler) getCommitFrequency(w http.ResponseWriter, r *http.Request) {
	_, _, fullName := repoVars(r)

	weekly, err := h.service.GetCommitFrequency(r.Context(), fullName)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	if weekly == nil {
		weekly = map[string]int{}
	}

	writeSuccess(w, weekly, "Successfully fetched commit frequency")
}

// getCodeChurn godoc
// @Summary Get Code Churn
// @Description Most changed files ranked by total added+deleted lines
// @Tags Reports
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Param limit query int false "Max files to return" default(10)
// @Success 200 {array} models.FileChurn
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name}/reports/code-churn [get]
func (h *AnalysisHandler) getCodeChurn(w http.ResponseWriter, r *http.Request) {
	_, _, fullName := repoVars(r)

	churn, err := h.service.GetTopChurnFiles(r.Context(), fullName, limitParam(r, 10))
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	if churn == nil {
		churn = []models.FileChurn{}
	}

	writeSuccess(w, churn, "Successfully fetched code churn")
}

// getBugProneFiles godoc
// @Summary Get Bug-Prone Files
// @Description Files ranked by the number of bug-fix commits touching them
// @Tags Reports
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Param limit query int false "Max files to return" default(10)
// @Success 200 {array} models.FileBugCount
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name}/reports/bug-prone-files [get]
func (h *AnalysisHandler) getBugProneFiles(w http.ResponseWriter, r *http.Request) {
	_, _, fullName := repoVars(r)

	bugs, err := h.service.GetBugProneFiles(r.Context(), fullName, limitParam(r, 10))
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	if bugs == nil {
		bugs = []models.FileBugCount{}
	}

	writeSuccess(w, bugs, "Successfully fetched bug-prone files")
}

// getTopContributors godoc
// @Summary Get Top Contributors
// @Description Authors ranked by commit count
// @Tags Reports
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Param limit query int false "Max authors to return" default(10)
// @Success 200 {array} models.AuthorCommitCount
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name}/reports/top-contributors [get]
func (h *AnalysisHandler) getTopContributors(w http.ResponseWriter, r *http.Request) {
	_, _, fullName := repoVars(r)

	authors, err := h.service.GetTopContributors(r.Context(), fullName, limitParam(r, 10))
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	if authors == nil {
		authors = []models.AuthorCommitCount{}
	}

	writeSuccess(w, authors, "Successfully fetched top contributors")
}

// enqueueAnalysis godoc
// @Summary Trigger Analysis
// @Description Queues a sync + analysis run for the repository
// @Tags Reports
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Success 202 {object} map[string]string
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name}/analyze [post]
func (h *AnalysisHandler) enqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	owner, name, fullName := repoVars(r)

	repo, err := h.service.GetRepository(r.Context(), fullName)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	var since time.Time
	if repo.LastSyncedAt != nil {
		since = *repo.LastSyncedAt
	}

	req := queue.AnalyzeRequest{Owner: owner, Repo: name, Since: since}
	if err := h.queue.PublishAnalyzeRequest(r.Context(), req); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	logger.Info("Queued analysis for %s", fullName)
	w.WriteHeader(http.StatusAccepted)
	writeSuccess(w, map[string]string{
		"message": "Analysis queued.",
	}, "Analysis queued")
}

// resetCollection godoc
// @Summary Reset Repository Data
// @Description Deletes the snapshot and reports, then re-collects history starting from a given date
// @Tags Repository
// @Accept json
// @Produce json
// @Param owner path string true "Repository Owner"
// @Param name path string true "Repository Name"
// @Param request body models.DateRequest true "Start date"
// @Success 200 {object} map[string]string
// @Failure 400 {string} string "Bad Request"
// @Failure 500 {string} string "Internal Server Error"
// @Router /repositories/{owner}/{name}/reset-collection [post]
func (h *AnalysisHandler) resetCollection(w http.ResponseWriter, r *http.Request) {
	owner, name, fullName := repoVars(r)

	var request models.DateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ResetCollection(r.Context(), owner, name, request.Since); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	logger.Info("Reset collection for %s", fullName)
	writeSuccess(w, map[string]string{
		"message": "Collection reset and re-analysis complete.",
	}, "Collection reset")
}
