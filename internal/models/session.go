package models

import "time"

// WalletSession maps a wallet address to its stable pseudonymous identity.
// One wallet resolves to exactly one identity; absence of a row means the
// viewer is unauthenticated.
type WalletSession struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"size:128;not null;uniqueIndex" json:"wallet_address"`
	Identity      string    `gorm:"size:36;not null;uniqueIndex" json:"identity"`
	CreatedAt     time.Time `json:"created_at"`
}
