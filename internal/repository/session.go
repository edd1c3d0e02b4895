// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"arcanum/internal/cache"
	"arcanum/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository defines the interface for wallet session lookups.
type SessionRepository interface {
	// GetByWallet returns the session for a wallet address, or (nil, nil)
	// when no session is registered.
	GetByWallet(ctx context.Context, walletAddress string) (*models.WalletSession, error)
	// Register creates a session for the wallet if none exists and returns
	// the (new or existing) session. Safe under concurrent registration.
	Register(ctx context.Context, walletAddress string) (*models.WalletSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByWallet(ctx context.Context, walletAddress string) (*models.WalletSession, error) {
	var session models.WalletSession
	err := cache.Aside(ctx, cache.SessionKey(walletAddress), &session, cache.SessionTTL, func() error {
		return r.db.WithContext(ctx).
			Where("wallet_address = ?", walletAddress).
			First(&session).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Register(ctx context.Context, walletAddress string) (*models.WalletSession, error) {
	// Two tabs registering the same wallet must converge on one identity:
	// insert-if-absent, then read back whichever row won.
	identity := uuid.NewString()
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO wallet_sessions (wallet_address, identity, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (wallet_address) DO NOTHING`,
		walletAddress, identity,
	)
	if result.Error != nil {
		return nil, result.Error
	}

	var session models.WalletSession
	if err := r.db.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
