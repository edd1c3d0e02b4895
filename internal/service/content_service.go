package service

import (
	"context"

	"arcanum/internal/cache"
	"arcanum/internal/codec"
	"arcanum/internal/models"
	"arcanum/internal/repository"
)

// ContentService handles chain-event ingestion and viewer-facing reads.
// Gated bodies are encoded at ingestion and stay encoded at rest; a body is
// decoded only for a viewer whose access decision grants it.
type ContentService struct {
	contentRepo repository.ContentRepository
	access      *AccessService
	codec       *codec.Codec
}

// NewContentService creates a new ContentService.
func NewContentService(contentRepo repository.ContentRepository, access *AccessService, contentCodec *codec.Codec) *ContentService {
	return &ContentService{contentRepo: contentRepo, access: access, codec: contentCodec}
}

// IngestInput is a normalized chain event announcing a content item.
type IngestInput struct {
	Title          string
	Body           string
	Tier           models.VisibilityTier
	UnlockPrice    *float64
	AuthorIdentity string
	ChainRef       string
}

// Ingest stores a content item from a chain event. Ingestion is idempotent on
// chain_ref: replaying the same event returns the already-stored item.
func (s *ContentService) Ingest(ctx context.Context, in IngestInput) (*models.Content, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("title is required")
	}
	if in.Body == "" {
		return nil, models.NewValidationError("body is required")
	}
	if in.ChainRef == "" {
		return nil, models.NewValidationError("chain_ref is required")
	}

	if existing, err := s.contentRepo.GetByChainRef(ctx, in.ChainRef); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return existing, nil
	}

	bodyHash := codec.Hash(in.Body)
	var content *models.Content
	switch in.Tier {
	case models.TierPublic:
		content = models.NewPublicContent(in.Title, in.Body, bodyHash, in.AuthorIdentity, in.ChainRef)
	case models.TierGated:
		if in.UnlockPrice == nil {
			return nil, models.NewValidationError("Gated content requires an unlock price")
		}
		encoded, err := s.codec.Encode(in.Body)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		content = models.NewGatedContent(in.Title, encoded, bodyHash, in.AuthorIdentity, in.ChainRef, *in.UnlockPrice)
	default:
		return nil, models.NewValidationError("Unknown visibility tier")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	if err := s.contentRepo.Create(ctx, content); err != nil {
		return nil, models.NewStoreWriteError(err)
	}
	cache.InvalidateContentList(ctx)
	return content, nil
}

// ContentView is a content item rendered for one viewer: the fresh access
// decision plus the body, which is present only when the decision grants it.
type ContentView struct {
	Content  *models.Content       `json:"content"`
	Decision models.AccessDecision `json:"decision"`
	Body     string                `json:"body,omitempty"`
}

// View returns the content item with a decision evaluated for this viewer.
// The decision is computed per call; only the metadata row itself is cached.
func (s *ContentService) View(ctx context.Context, contentID uint, walletAddress string) (*ContentView, error) {
	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, models.NewNotFoundError("Content", contentID)
	}

	decision, err := s.access.EvaluateForWallet(ctx, contentID, walletAddress)
	if err != nil {
		return nil, err
	}

	view := &ContentView{Content: content, Decision: decision}
	if !decision.HasAccess {
		return view, nil
	}

	if content.Tier == models.TierPublic {
		view.Body = content.Body
		return view, nil
	}
	body, err := s.codec.Decode(content.Body)
	if err != nil {
		return nil, err
	}
	view.Body = body
	return view, nil
}

// List returns the newest content items. Bodies are never included; the list
// is cache-aside with a short TTL and invalidated on ingestion.
func (s *ContentService) List(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	// Only the default page is cached; deep pages go to the store.
	if offset == 0 && limit == 20 {
		var contents []*models.Content
		err := cache.Aside(ctx, cache.ContentListKey, &contents, cache.ListTTL, func() error {
			fetched, err := s.contentRepo.List(ctx, limit, offset)
			if err != nil {
				return err
			}
			contents = fetched
			return nil
		})
		return contents, err
	}
	return s.contentRepo.List(ctx, limit, offset)
}
