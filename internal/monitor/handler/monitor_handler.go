package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

type RunTrigger interface {
	RunCheck(ctx context.Context, filter *models.RunFilter, runLabel string) (*models.RunSummary, error)
}

type DigestProvider interface {
	GetRecentDigests(ctx context.Context, topicName string, limit int) ([]*models.Digest, error)
}

// MonitorHandler отдаёт HTTP API мониторинга: ручной запуск прогона и
// просмотр последних дайджестов.
type MonitorHandler struct {
	runner  RunTrigger
	digests DigestProvider
	logger  *slog.Logger
}

func NewMonitorHandler(runner RunTrigger, digests DigestProvider, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		runner:  runner,
		digests: digests,
		logger:  logger,
	}
}

func (h *MonitorHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/runs", h.handleRuns)
	mux.HandleFunc("/api/v1/digests", h.handleDigests)
}

type runRequest struct {
	Topic  string `json:"topic"`
	Entity string `json:"entity"`
}

type runResponse struct {
	Baseline  int              `json:"baseline"`
	Unchanged int              `json:"unchanged"`
	Changed   int              `json:"changed"`
	Failed    int              `json:"failed"`
	Digests   []digestResponse `json:"digests"`
}

type digestResponse struct {
	ID           int64     `json:"id"`
	ResourceID   int64     `json:"resourceId"`
	ResourceName string    `json:"resourceName"`
	EntityName   string    `json:"entityName,omitempty"`
	Summary      string    `json:"summary"`
	ChangeType   string    `json:"changeType"`
	CreatedAt    time.Time `json:"createdAt"`
}

type errorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (h *MonitorHandler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "поддерживается только POST")
		return
	}

	var req runRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "некорректное тело запроса")
		return
	}

	var filter *models.RunFilter
	if req.Topic != "" || req.Entity != "" {
		filter = &models.RunFilter{TopicName: req.Topic, EntityName: req.Entity}
	}

	summary, err := h.runner.RunCheck(r.Context(), filter, "Manual check")
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := runResponse{
		Baseline:  summary.Baseline,
		Unchanged: summary.Unchanged,
		Changed:   summary.Changed,
		Failed:    summary.Failed,
		Digests:   toDigestResponses(summary.Digests),
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *MonitorHandler) handleDigests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "поддерживается только GET")
		return
	}

	topicName := r.URL.Query().Get("topic")

	limit := 20

	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "параметр limit должен быть положительным числом")
			return
		}

		limit = parsed
	}

	digests, err := h.digests.GetRecentDigests(r.Context(), topicName, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toDigestResponses(digests))
}

func toDigestResponses(digests []*models.Digest) []digestResponse {
	responses := make([]digestResponse, 0, len(digests))

	for _, digest := range digests {
		responses = append(responses, digestResponse{
			ID:           digest.ID,
			ResourceID:   digest.ResourceID,
			ResourceName: digest.ResourceName,
			EntityName:   digest.EntityName,
			Summary:      digest.Summary,
			ChangeType:   digest.ChangeType,
			CreatedAt:    digest.CreatedAt,
		})
	}

	return responses
}

func (h *MonitorHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, &customerrors.ErrTopicNotFound{}),
		errors.Is(err, &customerrors.ErrEntityNotFound{}),
		errors.Is(err, &customerrors.ErrResourceNotFound{}):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("Внутренняя ошибка при обработке запроса", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "внутренняя ошибка сервера")
	}
}

func (h *MonitorHandler) writeError(w http.ResponseWriter, status int, code, description string) {
	h.writeJSON(w, status, errorResponse{Code: code, Description: description})
}

func (h *MonitorHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Ошибка при записи ответа", "error", err)
	}
}
