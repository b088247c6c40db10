package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lightnindragon/listgenius/pkg/model"
)

// ErrDuplicatePublish surfaces the partial unique index on published auto
// posts: a second same-day publish for an owner fails here instead of
// silently overwriting.
var ErrDuplicatePublish = errors.New("owner already has a published auto post for this day")

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) CountAutoPublishedBetween(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("owner_id = ? AND auto_generated = ? AND status = ?", ownerID, true, model.PostPublished).
		Where("published_at >= ? AND published_at < ?", from, to).
		Count(&count).Error
	return count, err
}

// MarkForManualReview parks a post that failed its quality budget: the
// lifecycle stays DRAFT, only the internal workflow verdict changes.
func (r *PostRepository) MarkForManualReview(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"workflow_status": model.WorkflowRejected,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PublishPost flips the post to its public state and writes the
// post_published outbox event in the same transaction. publishedOn is the
// calendar day in the pipeline's operating zone and feeds the per-owner
// per-day unique index.
func (r *PostRepository) PublishPost(ctx context.Context, id string, publishedAt, publishedOn time.Time, url string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":          model.PostPublished,
			"workflow_status": model.WorkflowApproved,
			"published_at":    publishedAt,
			"published_on":    publishedOn,
			"public_url":      url,
			"updated_at":      publishedAt,
		}
		if err := tx.Model(&model.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		event := &model.PipelineEvent{
			EventID:   uuid.New(),
			EventType: "post_published",
			Payload: model.JSONB{
				"post_id":  id,
				"owner_id": post.OwnerID.String(),
				"url":      url,
			},
			Status: model.OutboxStatusPending,
		}
		return tx.Create(event).Error
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePublish
	}
	return err
}

func (r *PostRepository) List(ctx context.Context, ownerID string, status *model.PostStatus, limit, offset int) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Post{}).Where("owner_id = ?", ownerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error

	return posts, total, err
}

type OwnerRepository struct {
	db *gorm.DB
}

func NewOwnerRepository(db *gorm.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

func (r *OwnerRepository) ListAutoblogEnabled(ctx context.Context) ([]model.Owner, error) {
	var owners []model.Owner
	err := r.db.WithContext(ctx).
		Where("autoblog_enabled = ?", true).
		Order("created_at ASC").
		Find(&owners).Error
	return owners, err
}

func (r *OwnerRepository) GetByID(ctx context.Context, id string) (*model.Owner, error) {
	var owner model.Owner
	err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &owner, nil
}
