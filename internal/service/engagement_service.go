package service

import (
	"context"

	"arcanum/internal/models"
	"arcanum/internal/observability"
	"arcanum/internal/repository"
)

// EngagementService owns exclusive up/down vote bookkeeping. Every mutation
// goes through single-statement conditional store operations, and every
// returned counter is read back from the stored aggregate, so concurrent
// sessions can hammer the same target without losing updates.
type EngagementService struct {
	voteRepo    repository.VoteRepository
	contentRepo repository.ContentRepository
	replyRepo   repository.ReplyRepository
}

// NewEngagementService creates a new EngagementService.
func NewEngagementService(
	voteRepo repository.VoteRepository,
	contentRepo repository.ContentRepository,
	replyRepo repository.ReplyRepository,
) *EngagementService {
	return &EngagementService{
		voteRepo:    voteRepo,
		contentRepo: contentRepo,
		replyRepo:   replyRepo,
	}
}

// SetVoteInput describes one vote mutation request.
type SetVoteInput struct {
	ContentType string
	ContentID   uint
	Identity    string
	Direction   models.VoteDirection
}

// SetVote applies the exclusive-vote transition for (target, identity):
// no vote + direction d adds d; existing d toggles it off; the opposite
// direction is switched in one atomic statement. The returned VoteStatus is
// always the authoritative post-mutation state.
func (s *EngagementService) SetVote(ctx context.Context, in SetVoteInput) (*models.VoteStatus, error) {
	if in.Identity == "" {
		return nil, models.NewUnauthorizedError("Connect a wallet session before voting")
	}
	if !in.Direction.Valid() {
		return nil, models.NewValidationError("direction must be 'up' or 'down'")
	}
	if err := s.targetExists(ctx, in.ContentType, in.ContentID); err != nil {
		return nil, err
	}

	// Toggle-off: a conditional delete removes the vote only when the stored
	// direction matches the request. If nothing matched, the upsert either
	// adds the vote or switches the direction, both in one statement.
	removed, err := s.voteRepo.DeleteMatching(ctx, in.ContentType, in.ContentID, in.Identity, in.Direction)
	if err != nil {
		return nil, models.NewStoreWriteError(err)
	}
	if removed {
		observability.VotesTotal.WithLabelValues(string(in.Direction), "removed").Inc()
	} else {
		if err := s.voteRepo.Upsert(ctx, in.ContentType, in.ContentID, in.Identity, in.Direction); err != nil {
			return nil, models.NewStoreWriteError(err)
		}
		observability.VotesTotal.WithLabelValues(string(in.Direction), "set").Inc()
	}

	return s.GetStats(ctx, in.ContentType, in.ContentID, in.Identity)
}

// GetStats returns the stored aggregate at call time, with the identity's own
// vote flags when an identity is supplied. Never served from a cache.
func (s *EngagementService) GetStats(ctx context.Context, contentType string, contentID uint, identity string) (*models.VoteStatus, error) {
	up, down, err := s.voteRepo.GetStats(ctx, contentType, contentID)
	if err != nil {
		return nil, err
	}

	status := &models.VoteStatus{
		UpvoteCount:   up,
		DownvoteCount: down,
	}
	if identity != "" {
		vote, err := s.voteRepo.GetByIdentity(ctx, contentType, contentID, identity)
		if err != nil {
			return nil, err
		}
		if vote != nil {
			status.HasUpvoted = vote.Direction == models.VoteUp
			status.HasDownvoted = vote.Direction == models.VoteDown
		}
	}
	return status, nil
}

// ReplyStats returns aggregate counters for a batch of replies.
func (s *EngagementService) ReplyStats(ctx context.Context, replyIDs []uint) (map[uint]models.VoteStatus, error) {
	return s.voteRepo.StatsByTargets(ctx, models.ContentTypeReply, replyIDs)
}

func (s *EngagementService) targetExists(ctx context.Context, contentType string, contentID uint) error {
	switch contentType {
	case models.ContentTypePost:
		if _, err := s.contentRepo.GetByID(ctx, contentID); err != nil {
			return models.NewNotFoundError("Content", contentID)
		}
	case models.ContentTypeReply:
		if _, err := s.replyRepo.GetByID(ctx, contentID); err != nil {
			return models.NewNotFoundError("Reply", contentID)
		}
	default:
		return models.NewValidationError("Unknown content type")
	}
	return nil
}
