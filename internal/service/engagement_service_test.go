package service

import (
	"context"
	"errors"
	"testing"

	"arcanum/internal/models"
)

func engagementServiceWith(votes *memVoteRepo) *EngagementService {
	if votes == nil {
		votes = newMemVoteRepo()
	}
	return NewEngagementService(votes, noopContentRepo(), noopReplyRepo())
}

func mustSetVote(t *testing.T, svc *EngagementService, identity string, direction models.VoteDirection) *models.VoteStatus {
	t.Helper()
	status, err := svc.SetVote(context.Background(), SetVoteInput{
		ContentType: models.ContentTypePost,
		ContentID:   1,
		Identity:    identity,
		Direction:   direction,
	})
	if err != nil {
		t.Fatalf("set vote %s/%s: %v", identity, direction, err)
	}
	return status
}

func TestSetVoteRequiresIdentity(t *testing.T) {
	svc := engagementServiceWith(nil)
	_, err := svc.SetVote(context.Background(), SetVoteInput{
		ContentType: models.ContentTypePost,
		ContentID:   1,
		Direction:   models.VoteUp,
	})
	if !models.HasCode(err, models.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %#v", err)
	}
}

func TestSetVoteRejectsUnknownDirection(t *testing.T) {
	svc := engagementServiceWith(nil)
	_, err := svc.SetVote(context.Background(), SetVoteInput{
		ContentType: models.ContentTypePost,
		ContentID:   1,
		Identity:    "identity-a",
		Direction:   "sideways",
	})
	if !models.HasCode(err, models.CodeValidation) {
		t.Fatalf("expected validation error, got %#v", err)
	}
}

func TestSetVoteMissingTarget(t *testing.T) {
	contentRepo := noopContentRepo()
	contentRepo.getByIDFn = func(context.Context, uint) (*models.Content, error) {
		return nil, errors.New("record not found")
	}
	svc := NewEngagementService(newMemVoteRepo(), contentRepo, noopReplyRepo())

	_, err := svc.SetVote(context.Background(), SetVoteInput{
		ContentType: models.ContentTypePost,
		ContentID:   404,
		Identity:    "identity-a",
		Direction:   models.VoteUp,
	})
	if !models.HasCode(err, models.CodeNotFound) {
		t.Fatalf("expected not found, got %#v", err)
	}
}

func TestSetVoteAdd(t *testing.T) {
	svc := engagementServiceWith(nil)
	status := mustSetVote(t, svc, "identity-a", models.VoteUp)

	if !status.HasUpvoted || status.HasDownvoted {
		t.Fatalf("flags = %+v, want upvoted only", status)
	}
	if status.UpvoteCount != 1 || status.DownvoteCount != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", status.UpvoteCount, status.DownvoteCount)
	}
}

func TestSetVoteToggleOff(t *testing.T) {
	svc := engagementServiceWith(nil)
	mustSetVote(t, svc, "identity-a", models.VoteUp)
	status := mustSetVote(t, svc, "identity-a", models.VoteUp)

	if status.HasUpvoted || status.HasDownvoted {
		t.Fatalf("flags = %+v, want no vote after toggle", status)
	}
	if status.UpvoteCount != 0 || status.DownvoteCount != 0 {
		t.Fatalf("counts = %d/%d, want 0/0 floor", status.UpvoteCount, status.DownvoteCount)
	}
}

func TestSetVoteSwitchDirection(t *testing.T) {
	svc := engagementServiceWith(nil)
	mustSetVote(t, svc, "identity-a", models.VoteUp)
	status := mustSetVote(t, svc, "identity-a", models.VoteDown)

	if status.HasUpvoted || !status.HasDownvoted {
		t.Fatalf("flags = %+v, want downvoted only", status)
	}
	if status.UpvoteCount != 0 || status.DownvoteCount != 1 {
		t.Fatalf("counts = %d/%d, want 0/1 after switch", status.UpvoteCount, status.DownvoteCount)
	}
}

func TestSetVoteExclusivePerIdentity(t *testing.T) {
	svc := engagementServiceWith(nil)

	// Whatever the sequence, one identity contributes at most one vote.
	sequence := []models.VoteDirection{
		models.VoteUp, models.VoteDown, models.VoteDown, models.VoteUp, models.VoteDown,
	}
	var status *models.VoteStatus
	for _, d := range sequence {
		status = mustSetVote(t, svc, "identity-a", d)
	}
	if status.UpvoteCount+status.DownvoteCount > 1 {
		t.Fatalf("counts = %d/%d, one identity produced more than one vote", status.UpvoteCount, status.DownvoteCount)
	}
}

func TestSetVoteAggregatesAcrossIdentities(t *testing.T) {
	svc := engagementServiceWith(nil)
	mustSetVote(t, svc, "identity-a", models.VoteUp)
	mustSetVote(t, svc, "identity-b", models.VoteUp)
	status := mustSetVote(t, svc, "identity-c", models.VoteDown)

	if status.UpvoteCount != 2 || status.DownvoteCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", status.UpvoteCount, status.DownvoteCount)
	}
	if status.HasUpvoted || !status.HasDownvoted {
		t.Fatalf("flags = %+v, want identity-c's own downvote only", status)
	}
}

func TestSetVoteOnReply(t *testing.T) {
	svc := engagementServiceWith(nil)
	status, err := svc.SetVote(context.Background(), SetVoteInput{
		ContentType: models.ContentTypeReply,
		ContentID:   7,
		Identity:    "identity-a",
		Direction:   models.VoteDown,
	})
	if err != nil {
		t.Fatalf("set vote on reply: %v", err)
	}
	if !status.HasDownvoted || status.DownvoteCount != 1 {
		t.Fatalf("status = %+v, want one downvote on the reply", status)
	}
}

func TestGetStatsWithoutIdentity(t *testing.T) {
	svc := engagementServiceWith(nil)
	mustSetVote(t, svc, "identity-a", models.VoteUp)

	status, err := svc.GetStats(context.Background(), models.ContentTypePost, 1, "")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if status.UpvoteCount != 1 || status.HasUpvoted {
		t.Fatalf("status = %+v, want counts without viewer flags", status)
	}
}
