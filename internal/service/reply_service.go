package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"arcanum/internal/codec"
	"arcanum/internal/models"
	"arcanum/internal/observability"
	"arcanum/internal/repository"
)

const (
	maxReplyLength   = 4000
	replyPreviewRune = 140
)

// ReplyService composes replies into posts and assembles the stored flat list
// back into a forest. Reply bodies are kept encoded at rest; decoding happens
// per node on read, and one bad node never poisons the rest of the thread.
type ReplyService struct {
	replyRepo  repository.ReplyRepository
	access     *AccessService
	identity   *IdentityService
	engagement *EngagementService
	codec      *codec.Codec
}

// NewReplyService creates a new ReplyService.
func NewReplyService(
	replyRepo repository.ReplyRepository,
	access *AccessService,
	identity *IdentityService,
	engagement *EngagementService,
	contentCodec *codec.Codec,
) *ReplyService {
	return &ReplyService{
		replyRepo:  replyRepo,
		access:     access,
		identity:   identity,
		engagement: engagement,
		codec:      contentCodec,
	}
}

// CreateReplyInput describes one reply composition request.
type CreateReplyInput struct {
	PostID        uint
	ParentID      *uint
	WalletAddress string
	Content       string
}

// CreateReply validates, gates, encodes and stores a reply. Replying requires
// a wallet session and, on gated content, an access decision that grants
// access. Depth is checked against the stored parent chain at write time.
func (s *ReplyService) CreateReply(ctx context.Context, in CreateReplyInput) (*models.Reply, error) {
	session, err := s.identity.Resolve(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.NewUnauthorizedError("Connect a wallet session before replying")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Reply content cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxReplyLength {
		return nil, models.NewValidationError("Reply content exceeds the maximum length")
	}

	decision, err := s.access.Evaluate(ctx, in.PostID, session.Identity)
	if err != nil {
		return nil, err
	}
	if !decision.HasAccess {
		return nil, models.NewUnauthorizedError("Unlock this content before replying")
	}

	if in.ParentID != nil {
		if err := s.checkParent(ctx, in.PostID, *in.ParentID); err != nil {
			return nil, err
		}
	}

	encoded, err := s.codec.Encode(content)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	preview := previewOf(content)
	encodedPreview, err := s.codec.Encode(preview)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	reply := &models.Reply{
		PostID:          in.PostID,
		ParentID:        in.ParentID,
		ReplierIdentity: session.Identity,
		EncodedContent:  encoded,
		ContentHash:     codec.Hash(content),
		EncodedPreview:  encodedPreview,
		PreviewHash:     codec.Hash(preview),
	}
	if err := s.replyRepo.Create(ctx, reply); err != nil {
		return nil, models.NewStoreWriteError(err)
	}
	return reply, nil
}

// checkParent verifies the parent belongs to the same post and that attaching
// a child does not exceed MaxThreadDepth. Depth is measured by walking the
// stored parent chain: a root sits at depth 1.
func (s *ReplyService) checkParent(ctx context.Context, postID, parentID uint) error {
	depth := 0
	nextID := &parentID
	for nextID != nil {
		parent, err := s.replyRepo.GetByID(ctx, *nextID)
		if err != nil {
			return models.NewNotFoundError("Reply", *nextID)
		}
		if depth == 0 && parent.PostID != postID {
			return models.NewValidationError("Parent reply belongs to a different post")
		}
		depth++
		if depth >= models.MaxThreadDepth {
			return models.NewValidationError("Reply thread is at maximum depth")
		}
		nextID = parent.ParentID
	}
	return nil
}

// ListReplies returns the decoded reply forest for a post, with per-reply
// vote stats. Callers gate visibility before asking for the thread.
func (s *ReplyService) ListReplies(ctx context.Context, postID uint) ([]*models.ReplyNode, error) {
	replies, err := s.replyRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(replies))
	for _, r := range replies {
		ids = append(ids, r.ID)
	}
	stats, err := s.engagement.ReplyStats(ctx, ids)
	if err != nil {
		return nil, err
	}

	nodes := make([]*models.ReplyNode, 0, len(replies))
	for _, r := range replies {
		node := &models.ReplyNode{
			ID:              r.ID,
			ParentID:        r.ParentID,
			ReplierIdentity: r.ReplierIdentity,
			ContentHash:     r.ContentHash,
			CreatedAt:       r.CreatedAt,
			Stats:           stats[r.ID],
			Children:        []*models.ReplyNode{},
		}
		content, err := s.codec.Decode(r.EncodedContent)
		if err != nil {
			// One undecodable reply becomes a placeholder; its siblings
			// still render.
			observability.DecodeFailuresTotal.Inc()
			observability.Logger.WarnContext(ctx, "reply decode failed",
				slog.Uint64("reply_id", uint64(r.ID)),
				slog.String("error", err.Error()))
			node.DecodeFailed = true
		} else {
			node.Content = content
		}
		nodes = append(nodes, node)
	}

	return BuildForest(nodes), nil
}

// BuildForest groups a flat creation-ordered list into a forest. Roots keep
// list order; children keep list order under their parent. A node whose
// parent is missing from the batch is promoted to a root rather than dropped.
func BuildForest(nodes []*models.ReplyNode) []*models.ReplyNode {
	byID := make(map[uint]*models.ReplyNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	roots := make([]*models.ReplyNode, 0, len(nodes))
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= replyPreviewRune {
		return content
	}
	return string(runes[:replyPreviewRune])
}
