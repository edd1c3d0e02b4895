package repository

import (
	"context"

	"arcanum/internal/models"
	"arcanum/internal/observability"

	"gorm.io/gorm"
)

// GrantRepository is the append-only ledger of confirmed payment events.
type GrantRepository interface {
	// Record appends a grant. Duplicates are permitted: access is
	// existence-based, so redundant events are harmless.
	Record(ctx context.Context, grant *models.AccessGrant) error
	// HasAccess reports whether any tip or unlock grant exists for the pair.
	HasAccess(ctx context.Context, contentType string, contentID uint, identity string) (bool, error)
	// BestGrantType returns the strongest grant type held for the pair;
	// unlock takes priority over tip.
	BestGrantType(ctx context.Context, contentType string, contentID uint, identity string) (models.GrantType, bool, error)
	// ListByContent returns every grant recorded against a content item.
	ListByContent(ctx context.Context, contentType string, contentID uint) ([]*models.AccessGrant, error)
}

type grantRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGrantRepository creates a new GrantRepository.
func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &grantRepository{db: db, log: observability.NewRepoLogger("access_grants")}
}

// Record appends to the ledger; every write is audit-logged because grants
// are money-backed events.
func (r *grantRepository) Record(ctx context.Context, grant *models.AccessGrant) error {
	if err := r.db.WithContext(ctx).Create(grant).Error; err != nil {
		r.log.LogError(ctx, err, "record")
		return err
	}
	r.log.LogWrite(ctx, "record", map[string]interface{}{
		"content_id": grant.ContentID,
		"identity":   grant.Identity,
		"grant_type": string(grant.GrantType),
		"tx_hash":    grant.TxHash,
	})
	return nil
}

func (r *grantRepository) HasAccess(ctx context.Context, contentType string, contentID uint, identity string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessGrant{}).
		Where("content_type = ? AND content_id = ? AND identity = ? AND grant_type IN ?",
			contentType, contentID, identity, []models.GrantType{models.GrantTip, models.GrantUnlock}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *grantRepository) BestGrantType(ctx context.Context, contentType string, contentID uint, identity string) (models.GrantType, bool, error) {
	var grant models.AccessGrant
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ? AND identity = ?", contentType, contentID, identity).
		Order("CASE WHEN grant_type = 'unlock' THEN 0 ELSE 1 END, created_at ASC").
		First(&grant).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return grant.GrantType, true, nil
}

func (r *grantRepository) ListByContent(ctx context.Context, contentType string, contentID uint) ([]*models.AccessGrant, error) {
	var grants []*models.AccessGrant
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}
