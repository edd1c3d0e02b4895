package service

import (
	"context"
	"log/slog"
	"time"

	"arcanum/internal/models"
	"arcanum/internal/observability"
	"arcanum/internal/payments"
	"arcanum/internal/repository"
)

// AccessService is the access-decision state machine plus the bookkeeping
// that turns a confirmed payment into a durable grant. Decisions are derived
// values: they are recomputed on every call and never cached, so a fresh
// grant or identity change is always reflected on the next evaluation.
type AccessService struct {
	contentRepo repository.ContentRepository
	grantRepo   repository.GrantRepository
	identity    *IdentityService
	gateway     payments.Gateway
	confirmWait time.Duration
}

// NewAccessService creates a new AccessService. confirmWait bounds how long
// an unlock or tip call waits for the payment confirmation signal.
func NewAccessService(
	contentRepo repository.ContentRepository,
	grantRepo repository.GrantRepository,
	identity *IdentityService,
	gateway payments.Gateway,
	confirmWait time.Duration,
) *AccessService {
	return &AccessService{
		contentRepo: contentRepo,
		grantRepo:   grantRepo,
		identity:    identity,
		gateway:     gateway,
		confirmWait: confirmWait,
	}
}

// EvaluateForWallet resolves the wallet to an identity and evaluates access.
// Identity lookup failures degrade to unauthenticated rather than erroring;
// the viewer simply sees the content as locked.
func (s *AccessService) EvaluateForWallet(ctx context.Context, contentID uint, walletAddress string) (models.AccessDecision, error) {
	identity := ""
	session, err := s.identity.Resolve(ctx, walletAddress)
	if err != nil {
		observability.Logger.WarnContext(ctx, "identity resolution degraded to unauthenticated",
			slog.String("error", err.Error()))
	} else if session != nil {
		identity = session.Identity
	}
	return s.Evaluate(ctx, contentID, identity)
}

// Evaluate runs the visibility state machine for (content, viewer). The empty
// identity means unauthenticated. No side effects beyond metrics.
func (s *AccessService) Evaluate(ctx context.Context, contentID uint, identity string) (models.AccessDecision, error) {
	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return models.Locked(models.ReasonPaymentRequired), models.NewNotFoundError("Content", contentID)
	}
	return s.evaluateContent(ctx, content, identity), nil
}

func (s *AccessService) evaluateContent(ctx context.Context, content *models.Content, identity string) models.AccessDecision {
	decision := s.decide(ctx, content, identity)
	observability.AccessDecisionsTotal.WithLabelValues(string(decision.Reason)).Inc()
	return decision
}

func (s *AccessService) decide(ctx context.Context, content *models.Content, identity string) models.AccessDecision {
	if content.Tier == models.TierPublic {
		return models.Unlocked(models.ReasonPublic)
	}
	if identity == "" {
		return models.Locked(models.ReasonUnauthenticated)
	}
	if identity == content.AuthorIdentity {
		return models.Unlocked(models.ReasonAuthor)
	}

	grantType, found, err := s.grantRepo.BestGrantType(ctx, models.ContentTypePost, content.ID, identity)
	if err != nil {
		// A store failure here must not open the gate; degrade to locked.
		observability.Logger.WarnContext(ctx, "grant lookup degraded to locked",
			slog.Uint64("content_id", uint64(content.ID)),
			slog.String("error", err.Error()))
		return models.Locked(models.ReasonPaymentRequired)
	}
	if found {
		if grantType == models.GrantUnlock {
			return models.Unlocked(models.ReasonUnlock)
		}
		return models.Unlocked(models.ReasonTip)
	}

	return models.Locked(models.ReasonPaymentRequired)
}

// RecordGrantInput describes one confirmed payment event.
type RecordGrantInput struct {
	ContentID uint
	Identity  string
	GrantType models.GrantType
	Amount    float64
	TxHash    string
}

// RecordGrant appends a grant to the access ledger. Duplicates are accepted;
// the ledger is an event log and access is existence-based.
func (s *AccessService) RecordGrant(ctx context.Context, in RecordGrantInput) (*models.AccessGrant, error) {
	grant := &models.AccessGrant{
		ContentType: models.ContentTypePost,
		ContentID:   in.ContentID,
		Identity:    in.Identity,
		GrantType:   in.GrantType,
		Amount:      in.Amount,
		TxHash:      in.TxHash,
	}
	if err := s.grantRepo.Record(ctx, grant); err != nil {
		return nil, models.NewStoreWriteError(err)
	}
	return grant, nil
}

// PaymentInput describes a viewer-initiated unlock or tip.
type PaymentInput struct {
	ContentID     uint
	WalletAddress string
	Amount        float64
}

// PaymentResult carries the recorded grant and the freshly re-evaluated
// decision after a confirmed payment.
type PaymentResult struct {
	Grant    *models.AccessGrant   `json:"grant"`
	Decision models.AccessDecision `json:"decision"`
}

// Unlock submits an unlock payment, waits for the confirmation signal,
// records the grant, and re-evaluates the decision. Nothing is written before
// confirmation; an unconfirmed payment leaves no grant behind.
func (s *AccessService) Unlock(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	session, err := s.identity.Resolve(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.NewUnauthorizedError("Connect a wallet session before unlocking")
	}

	content, err := s.contentRepo.GetByID(ctx, in.ContentID)
	if err != nil {
		return nil, models.NewNotFoundError("Content", in.ContentID)
	}
	if content.Tier != models.TierGated {
		return nil, models.NewValidationError("Content is not gated")
	}
	if session.Identity == content.AuthorIdentity {
		return nil, models.NewValidationError("Authors already have access to their own content")
	}
	if content.UnlockPrice != nil && in.Amount < *content.UnlockPrice {
		return nil, models.NewValidationError("Amount is below the unlock price")
	}

	return s.executePayment(ctx, content, session.Identity, models.GrantUnlock, in.Amount)
}

// Tip submits a tip. Tips also grant access and are never deduplicated:
// tipping twice appends two ledger events.
func (s *AccessService) Tip(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	session, err := s.identity.Resolve(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.NewUnauthorizedError("Connect a wallet session before tipping")
	}

	content, err := s.contentRepo.GetByID(ctx, in.ContentID)
	if err != nil {
		return nil, models.NewNotFoundError("Content", in.ContentID)
	}
	if in.Amount <= 0 {
		return nil, models.NewValidationError("Tip amount must be positive")
	}

	return s.executePayment(ctx, content, session.Identity, models.GrantTip, in.Amount)
}

func (s *AccessService) executePayment(ctx context.Context, content *models.Content, identity string, kind models.GrantType, amount float64) (*PaymentResult, error) {
	var receipt *payments.Receipt
	var err error
	switch kind {
	case models.GrantUnlock:
		receipt, err = s.gateway.SubmitUnlock(ctx, content.ID, amount)
	default:
		receipt, err = s.gateway.SubmitTip(ctx, content.ID, amount)
	}
	if err != nil {
		observability.PaymentsTotal.WithLabelValues(string(kind), "failed").Inc()
		if models.HasCode(err, models.CodePaymentFailed) {
			return nil, err
		}
		return nil, models.NewPaymentFailedError(err)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmWait)
	defer cancel()
	if err := s.gateway.AwaitConfirmation(confirmCtx, receipt.ID); err != nil {
		outcome := "failed"
		if models.HasCode(err, models.CodePaymentUnconfirmed) {
			outcome = "unconfirmed"
		}
		observability.PaymentsTotal.WithLabelValues(string(kind), outcome).Inc()
		return nil, err
	}

	grant, err := s.RecordGrant(ctx, RecordGrantInput{
		ContentID: content.ID,
		Identity:  identity,
		GrantType: kind,
		Amount:    amount,
		TxHash:    receipt.TxHash,
	})
	if err != nil {
		return nil, err
	}
	observability.PaymentsTotal.WithLabelValues(string(kind), "confirmed").Inc()

	// Re-evaluate instead of assuming: the decision must come from the store
	// state after the write, not from the in-flight view.
	decision, err := s.Evaluate(ctx, content.ID, identity)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Grant: grant, Decision: decision}, nil
}
