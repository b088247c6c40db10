package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lightnindragon/listgenius/pkg/model"
	"github.com/lightnindragon/listgenius/pkg/store/postgres"
)

type PostHandler struct {
	posts  *postgres.PostRepository
	logger *zap.Logger
}

func NewPostHandler(posts *postgres.PostRepository, logger *zap.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postResponse struct {
	ID             string   `json:"id"`
	OwnerID        string   `json:"owner_id"`
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	WordCount      int      `json:"word_count"`
	PrimaryKeyword string   `json:"primary_keyword,omitempty"`
	Category       string   `json:"category,omitempty"`
	Status         string   `json:"status"`
	WorkflowStatus string   `json:"workflow_status"`
	QualityScore   *float64 `json:"quality_score,omitempty"`
	RevisionCount  int      `json:"revision_count"`
	AutoGenerated  bool     `json:"auto_generated"`
	PublishedAt    *string  `json:"published_at,omitempty"`
	PublicURL      string   `json:"public_url,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

func (h *PostHandler) List(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Query("owner_id"))
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required"})
		return
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}

	var status *model.PostStatus
	if value := strings.TrimSpace(c.Query("status")); value != "" {
		parsed := model.PostStatus(value)
		if !isValidPostStatus(parsed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &parsed
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	posts, total, err := h.posts.List(c.Request.Context(), ownerID, status, limit, offset)
	if err != nil {
		h.logger.Error("failed to list posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}

	response := make([]postResponse, 0, len(posts))
	for i := range posts {
		response = append(response, mapPost(&posts[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": response,
		"total": total,
	})
}

func (h *PostHandler) Get(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	post, err := h.posts.GetByID(c.Request.Context(), postID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		h.logger.Error("failed to get post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get post"})
		return
	}

	c.JSON(http.StatusOK, mapPost(post))
}

func mapPost(post *model.Post) postResponse {
	return postResponse{
		ID:             post.ID.String(),
		OwnerID:        post.OwnerID.String(),
		Title:          post.Title,
		Slug:           post.Slug,
		WordCount:      post.WordCount,
		PrimaryKeyword: post.PrimaryKeyword,
		Category:       post.Category,
		Status:         string(post.Status),
		WorkflowStatus: string(post.WorkflowStatus),
		QualityScore:   post.QualityScore,
		RevisionCount:  post.RevisionCount,
		AutoGenerated:  post.AutoGenerated,
		PublishedAt:    formatTime(post.PublishedAt),
		PublicURL:      post.PublicURL,
		CreatedAt:      post.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func isValidPostStatus(status model.PostStatus) bool {
	switch status {
	case model.PostDraft, model.PostApproved, model.PostPublished, model.PostFailed:
		return true
	default:
		return false
	}
}
