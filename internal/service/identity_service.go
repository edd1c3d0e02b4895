// Package service implements the application's core business logic.
package service

import (
	"context"
	"strings"

	"arcanum/internal/models"
	"arcanum/internal/repository"
)

// IdentityService resolves wallet addresses to stable pseudonymous
// identities through registered sessions.
type IdentityService struct {
	sessions repository.SessionRepository
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(sessions repository.SessionRepository) *IdentityService {
	return &IdentityService{sessions: sessions}
}

// Resolve maps a wallet address to its identity. A missing session is not an
// error: it returns (nil, nil) and callers treat the viewer as
// unauthenticated.
func (s *IdentityService) Resolve(ctx context.Context, walletAddress string) (*models.WalletSession, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, nil
	}
	return s.sessions.GetByWallet(ctx, walletAddress)
}

// Register creates (or returns) the session for a wallet address.
func (s *IdentityService) Register(ctx context.Context, walletAddress string) (*models.WalletSession, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, models.NewValidationError("wallet_address is required")
	}
	if len(walletAddress) > 128 {
		return nil, models.NewValidationError("wallet_address too long")
	}

	session, err := s.sessions.Register(ctx, walletAddress)
	if err != nil {
		return nil, models.NewStoreWriteError(err)
	}
	return session, nil
}
