package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lightnindragon/listgenius/pkg/model"
	"github.com/lightnindragon/listgenius/pkg/queue"
	"github.com/lightnindragon/listgenius/pkg/store/postgres"
)

// RunEnqueuer places an on-demand run request on the queue.
type RunEnqueuer interface {
	Enqueue(ctx context.Context, request *queue.RunRequest) error
}

type RunHandler struct {
	runs     *postgres.RunRepository
	enqueuer RunEnqueuer
	logger   *zap.Logger
}

func NewRunHandler(runs *postgres.RunRepository, enqueuer RunEnqueuer, logger *zap.Logger) *RunHandler {
	return &RunHandler{runs: runs, enqueuer: enqueuer, logger: logger}
}

type runCreateRequest struct {
	OwnerID     string `json:"owner_id" binding:"required"`
	RequestedBy string `json:"requested_by"`
}

type runResponse struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	Outcome    string  `json:"outcome"`
	Success    bool    `json:"success"`
	PostID     *string `json:"post_id,omitempty"`
	Error      string  `json:"error,omitempty"`
	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

type stepResponse struct {
	Position   int         `json:"position"`
	Stage      string      `json:"stage"`
	Status     string      `json:"status"`
	StartedAt  string      `json:"started_at"`
	FinishedAt *string     `json:"finished_at,omitempty"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	Payload    model.JSONB `json:"payload,omitempty"`
}

type runDetailResponse struct {
	runResponse
	Steps []stepResponse `json:"steps"`
}

// Create enqueues an on-demand pipeline run; execution happens in the
// runner, so the API answers 202 with the request id.
func (h *RunHandler) Create(c *gin.Context) {
	var req runCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}

	request := &queue.RunRequest{
		RequestID:   uuid.New(),
		OwnerID:     ownerID,
		RequestedBy: req.RequestedBy,
		EnqueuedAt:  time.Now(),
	}

	if err := h.enqueuer.Enqueue(c.Request.Context(), request); err != nil {
		h.logger.Error("failed to enqueue run request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue run request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"request_id": request.RequestID.String(),
		"owner_id":   ownerID.String(),
	})
}

func (h *RunHandler) List(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Query("owner_id"))
	if ownerID != "" {
		if _, err := uuid.Parse(ownerID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
			return
		}
	}

	var outcome *model.RunOutcome
	if value := strings.TrimSpace(c.Query("outcome")); value != "" {
		parsed := model.RunOutcome(value)
		if !isValidOutcome(parsed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
			return
		}
		outcome = &parsed
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	runs, total, err := h.runs.List(c.Request.Context(), ownerID, outcome, limit, offset)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	response := make([]runResponse, 0, len(runs))
	for i := range runs {
		response = append(response, mapRun(&runs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  response,
		"total": total,
	})
}

func (h *RunHandler) Get(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), runID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		h.logger.Error("failed to get run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}

	steps := make([]stepResponse, 0, len(run.Steps))
	for _, step := range run.Steps {
		steps = append(steps, stepResponse{
			Position:   step.Position,
			Stage:      step.Stage,
			Status:     string(step.Status),
			StartedAt:  step.StartedAt.UTC().Format(time.RFC3339Nano),
			FinishedAt: formatTime(step.FinishedAt),
			DurationMS: step.DurationMS,
			Error:      step.Error,
			Payload:    step.Payload,
		})
	}

	c.JSON(http.StatusOK, runDetailResponse{
		runResponse: mapRun(run),
		Steps:       steps,
	})
}

func mapRun(run *model.PipelineRun) runResponse {
	response := runResponse{
		ID:        run.ID.String(),
		OwnerID:   run.OwnerID.String(),
		Outcome:   string(run.Outcome),
		Success:   run.Success,
		Error:     run.Error,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if run.PostID != nil {
		postID := run.PostID.String()
		response.PostID = &postID
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		response.FinishedAt = formatTime(&finished)
	}
	return response
}

func isValidOutcome(outcome model.RunOutcome) bool {
	switch outcome {
	case model.RunPublished, model.RunDraft, model.RunSkipped, model.RunAborted:
		return true
	default:
		return false
	}
}
