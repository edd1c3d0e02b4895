package repository

import (
	"context"

	"arcanum/internal/cache"
	"arcanum/internal/models"

	"gorm.io/gorm"
)

// ContentRepository defines the interface for content data operations.
// Content rows are created by chain-event ingestion and immutable afterwards.
type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	GetByID(ctx context.Context, id uint) (*models.Content, error)
	GetByChainRef(ctx context.Context, chainRef string) (*models.Content, error)
	List(ctx context.Context, limit, offset int) ([]*models.Content, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// applyEngagementCounts adds subqueries so counters come from the store in
// the same query, never from client-side accumulation.
func (r *contentRepository) applyEngagementCounts(db *gorm.DB) *gorm.DB {
	return db.Select(`contents.*,
		(SELECT COALESCE(SUM(CASE WHEN direction = 'up' THEN 1 ELSE 0 END), 0) FROM vote_records WHERE content_type = 'post' AND content_id = contents.id) AS upvote_count,
		(SELECT COALESCE(SUM(CASE WHEN direction = 'down' THEN 1 ELSE 0 END), 0) FROM vote_records WHERE content_type = 'post' AND content_id = contents.id) AS downvote_count,
		(SELECT COUNT(*) FROM replies WHERE replies.post_id = contents.id) AS reply_count`)
}

func (r *contentRepository) Create(ctx context.Context, content *models.Content) error {
	err := r.db.WithContext(ctx).Create(content).Error
	if err == nil {
		cache.InvalidateContentList(ctx)
	}
	return err
}

func (r *contentRepository) GetByID(ctx context.Context, id uint) (*models.Content, error) {
	var content models.Content
	if err := r.applyEngagementCounts(r.db.WithContext(ctx)).
		First(&content, id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) GetByChainRef(ctx context.Context, chainRef string) (*models.Content, error) {
	var content models.Content
	err := r.db.WithContext(ctx).
		Where("chain_ref = ?", chainRef).
		First(&content).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) List(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	var contents []*models.Content
	err := r.applyEngagementCounts(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&contents).Error
	return contents, err
}
