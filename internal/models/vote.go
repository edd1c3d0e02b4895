package models

import "time"

// VoteDirection is an up or down vote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Valid reports whether d is a member of the closed direction set.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// VoteRecord holds one identity's vote on one target. The unique index makes
// "at most one vote per (target, identity)" a store-level invariant rather
// than an application promise.
type VoteRecord struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ContentType string        `gorm:"size:16;not null;uniqueIndex:idx_votes_one_per_identity" json:"content_type"`
	ContentID   uint          `gorm:"not null;uniqueIndex:idx_votes_one_per_identity" json:"content_id"`
	Identity    string        `gorm:"size:36;not null;uniqueIndex:idx_votes_one_per_identity" json:"identity"`
	Direction   VoteDirection `gorm:"size:8;not null" json:"direction"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// VoteStatus is the authoritative post-mutation view returned to callers.
// Counts come from the stored aggregate at call time, never from a
// client-side delta.
type VoteStatus struct {
	HasUpvoted    bool  `json:"has_upvoted"`
	HasDownvoted  bool  `json:"has_downvoted"`
	UpvoteCount   int64 `json:"upvote_count"`
	DownvoteCount int64 `json:"downvote_count"`
}
