// Package payments defines the contract with the external on-chain payment
// layer. The core never mutates state on submission; only an explicit
// confirmation signal turns a payment into an access grant.
package payments

import (
	"context"
	"time"

	"arcanum/internal/models"
)

// Receipt identifies a submitted payment while it awaits confirmation.
type Receipt struct {
	ID          string           `json:"id"`
	TxHash      string           `json:"tx_hash"`
	ContentID   uint             `json:"content_id"`
	Kind        models.GrantType `json:"kind"`
	Amount      float64          `json:"amount"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// Gateway is the consumed interface of the on-chain payment layer. There is
// no cancellation path: once submitted, the only outcomes are confirmation or
// no confirmation (treated identically to failure by callers).
type Gateway interface {
	// SubmitUnlock submits an unlock payment for a content item.
	SubmitUnlock(ctx context.Context, contentID uint, amount float64) (*Receipt, error)
	// SubmitTip submits a tip for a content item.
	SubmitTip(ctx context.Context, contentID uint, amount float64) (*Receipt, error)
	// AwaitConfirmation blocks until the relay reports the receipt confirmed.
	// A relay rejection yields PAYMENT_FAILED; reaching the context deadline
	// without a signal yields PAYMENT_UNCONFIRMED.
	AwaitConfirmation(ctx context.Context, receiptID string) error
}
