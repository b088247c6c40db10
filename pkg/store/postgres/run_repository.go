package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/lightnindragon/listgenius/pkg/model"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun writes a terminal run and its step telemetry in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.PipelineRun, error) {
	var run model.PipelineRun
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) List(ctx context.Context, ownerID string, outcome *model.RunOutcome, limit, offset int) ([]model.PipelineRun, int64, error) {
	var runs []model.PipelineRun
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PipelineRun{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	if outcome != nil {
		query = query.Where("outcome = ?", *outcome)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	return runs, total, err
}
