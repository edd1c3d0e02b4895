package repository

import (
	"context"

	"arcanum/internal/models"

	"gorm.io/gorm"
)

// VoteRepository exposes the atomic primitives the engagement aggregator is
// built from. Each mutation is a single conditional statement; read-then-write
// sequences are deliberately not offered, so two tabs voting at once cannot
// lose an update.
type VoteRepository interface {
	// DeleteMatching removes the identity's vote only if it has the given
	// direction. Returns whether a row was removed.
	DeleteMatching(ctx context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) (bool, error)
	// Upsert inserts the vote or atomically switches an existing vote of the
	// opposite direction.
	Upsert(ctx context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) error
	// GetByIdentity returns the identity's current vote, or (nil, nil).
	GetByIdentity(ctx context.Context, contentType string, contentID uint, identity string) (*models.VoteRecord, error)
	// GetStats reads the authoritative counters from the stored aggregate.
	GetStats(ctx context.Context, contentType string, contentID uint) (up, down int64, err error)
	// StatsByTargets returns aggregate counters for a batch of targets of the
	// same content type, keyed by content id.
	StatsByTargets(ctx context.Context, contentType string, contentIDs []uint) (map[uint]models.VoteStatus, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) DeleteMatching(ctx context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`DELETE FROM vote_records
		 WHERE content_type = ? AND content_id = ? AND identity = ? AND direction = ?`,
		contentType, contentID, identity, direction,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *voteRepository) Upsert(ctx context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO vote_records (content_type, content_id, identity, direction, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		 ON CONFLICT (content_type, content_id, identity)
		 DO UPDATE SET direction = EXCLUDED.direction, updated_at = CURRENT_TIMESTAMP`,
		contentType, contentID, identity, direction,
	).Error
}

func (r *voteRepository) GetByIdentity(ctx context.Context, contentType string, contentID uint, identity string) (*models.VoteRecord, error) {
	var vote models.VoteRecord
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ? AND identity = ?", contentType, contentID, identity).
		First(&vote).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) GetStats(ctx context.Context, contentType string, contentID uint) (int64, int64, error) {
	var row struct {
		UpCount   int64
		DownCount int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT
		   COALESCE(SUM(CASE WHEN direction = 'up' THEN 1 ELSE 0 END), 0) AS up_count,
		   COALESCE(SUM(CASE WHEN direction = 'down' THEN 1 ELSE 0 END), 0) AS down_count
		 FROM vote_records
		 WHERE content_type = ? AND content_id = ?`,
		contentType, contentID,
	).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.UpCount, row.DownCount, nil
}

func (r *voteRepository) StatsByTargets(ctx context.Context, contentType string, contentIDs []uint) (map[uint]models.VoteStatus, error) {
	stats := make(map[uint]models.VoteStatus, len(contentIDs))
	if len(contentIDs) == 0 {
		return stats, nil
	}

	var rows []struct {
		ContentID uint
		UpCount   int64
		DownCount int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT content_id,
		   COALESCE(SUM(CASE WHEN direction = 'up' THEN 1 ELSE 0 END), 0) AS up_count,
		   COALESCE(SUM(CASE WHEN direction = 'down' THEN 1 ELSE 0 END), 0) AS down_count
		 FROM vote_records
		 WHERE content_type = ? AND content_id IN ?
		 GROUP BY content_id`,
		contentType, contentIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		stats[row.ContentID] = models.VoteStatus{
			UpvoteCount:   row.UpCount,
			DownvoteCount: row.DownCount,
		}
	}
	return stats, nil
}
