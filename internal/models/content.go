// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// VisibilityTier classifies content as freely viewable or payment-gated.
type VisibilityTier string

const (
	TierPublic VisibilityTier = "public"
	TierGated  VisibilityTier = "gated"
)

// Content represents a content item ingested from a chain event. The tier and
// price are fixed at creation; everything else about the record is immutable.
//
// The tier acts as a tagged union: a public item never carries an unlock
// price, a gated item always does. NewPublicContent/NewGatedContent plus the
// BeforeSave hook keep impossible combinations out of the store.
type Content struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Body           string         `gorm:"type:text;not null" json:"-"`
	BodyHash       string         `gorm:"size:64;not null" json:"body_hash"`
	Tier           VisibilityTier `gorm:"size:16;not null;index" json:"tier"`
	UnlockPrice    *float64       `json:"unlock_price,omitempty"`
	AuthorIdentity string         `gorm:"size:36;not null;index" json:"author_identity"`
	ChainRef       string         `gorm:"size:128;uniqueIndex" json:"chain_ref"`
	// UpvoteCount/DownvoteCount/ReplyCount are not persisted; computed at query time
	UpvoteCount   int64          `gorm:"->" json:"upvote_count"`
	DownvoteCount int64          `gorm:"->" json:"downvote_count"`
	ReplyCount    int64          `gorm:"->" json:"reply_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// NewPublicContent builds a public content item; the body is stored as-is.
func NewPublicContent(title, body, bodyHash, authorIdentity, chainRef string) *Content {
	return &Content{
		Title:          title,
		Body:           body,
		BodyHash:       bodyHash,
		Tier:           TierPublic,
		AuthorIdentity: authorIdentity,
		ChainRef:       chainRef,
	}
}

// NewGatedContent builds a gated content item; the body is expected to be an
// encoded token and unlockPrice is the minimum unlock amount.
func NewGatedContent(title, encodedBody, bodyHash, authorIdentity, chainRef string, unlockPrice float64) *Content {
	return &Content{
		Title:          title,
		Body:           encodedBody,
		BodyHash:       bodyHash,
		Tier:           TierGated,
		UnlockPrice:    &unlockPrice,
		AuthorIdentity: authorIdentity,
		ChainRef:       chainRef,
	}
}

// Validate enforces the tier/price tagged-union invariant.
func (c *Content) Validate() error {
	switch c.Tier {
	case TierPublic:
		if c.UnlockPrice != nil {
			return NewValidationError("Public content cannot carry an unlock price")
		}
	case TierGated:
		if c.UnlockPrice == nil {
			return NewValidationError("Gated content requires an unlock price")
		}
		if *c.UnlockPrice <= 0 {
			return NewValidationError("Unlock price must be positive")
		}
	default:
		return NewValidationError("Unknown visibility tier")
	}
	if c.AuthorIdentity == "" {
		return NewValidationError("Author identity is required")
	}
	return nil
}

// BeforeSave rejects rows that violate the tier invariant.
func (c *Content) BeforeSave(*gorm.DB) error {
	return c.Validate()
}
