package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/uimetrics/uima-go-api/internal/models"
)

// EvaluationRepository defines data operations for the evaluation history log.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	AppendResult(ctx context.Context, result *models.EvaluationResult) error
	SetCompletedCount(ctx context.Context, evaluationID uint, completed int) error
	GetBySessionID(ctx context.Context, sessionID string) (models.Evaluation, error)
	ListRecent(ctx context.Context, limit int) ([]models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) AppendResult(ctx context.Context, result *models.EvaluationResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *evaluationRepository) SetCompletedCount(ctx context.Context, evaluationID uint, completed int) error {
	return r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("id = ?", evaluationID).
		Update("completed_count", completed).Error
}

func (r *evaluationRepository) GetBySessionID(ctx context.Context, sessionID string) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Preload("Results").
		Where("session_id = ?", sessionID).
		First(&evaluation).Error
	return evaluation, err
}

func (r *evaluationRepository) ListRecent(ctx context.Context, limit int) ([]models.Evaluation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var evaluations []models.Evaluation
	err := r.db.WithContext(ctx).
		Preload("Results").
		Order("created_at DESC").
		Limit(limit).
		Find(&evaluations).Error
	return evaluations, err
}
