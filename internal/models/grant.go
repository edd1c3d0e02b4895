package models

import "time"

// GrantType distinguishes the two payment kinds that unlock content.
type GrantType string

const (
	GrantTip    GrantType = "tip"
	GrantUnlock GrantType = "unlock"
)

// Content types votes and grants can target.
const (
	ContentTypePost  = "post"
	ContentTypeReply = "reply"
)

// AccessGrant is one confirmed payment event. Grants form an append-only
// ledger: rows are never updated or deleted, and duplicates are permitted
// because access is existence-based, not count-based.
type AccessGrant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContentType string    `gorm:"size:16;not null;default:post;index:idx_grants_target" json:"content_type"`
	ContentID   uint      `gorm:"not null;index:idx_grants_target" json:"content_id"`
	Identity    string    `gorm:"size:36;not null;index:idx_grants_target" json:"identity"`
	GrantType   GrantType `gorm:"size:16;not null" json:"grant_type"`
	Amount      float64   `gorm:"not null" json:"amount"`
	TxHash      string    `gorm:"size:128" json:"tx_hash"`
	CreatedAt   time.Time `json:"created_at"`
}
