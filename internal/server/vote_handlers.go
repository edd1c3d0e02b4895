package server

import (
	"arcanum/internal/middleware"
	"arcanum/internal/models"
	"arcanum/internal/notifications"
	"arcanum/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	Direction string `json:"direction"`
}

// VoteContent applies the exclusive-vote transition on a post and returns the
// authoritative post-mutation counters.
func (s *Server) VoteContent(c *fiber.Ctx) error {
	return s.setVote(c, models.ContentTypePost)
}

// VoteReply applies the exclusive-vote transition on a reply.
func (s *Server) VoteReply(c *fiber.Ctx) error {
	return s.setVote(c, models.ContentTypeReply)
}

func (s *Server) setVote(c *fiber.Ctx, contentType string) error {
	ctx := c.UserContext()

	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req voteRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	status, err := s.engagementService.SetVote(ctx, service.SetVoteInput{
		ContentType: contentType,
		ContentID:   targetID,
		Identity:    middleware.Identity(c),
		Direction:   models.VoteDirection(req.Direction),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	roomID := targetID
	if contentType == models.ContentTypeReply {
		// Reply votes stream into the parent post's room.
		if reply, replyErr := s.replyRepo.GetByID(ctx, targetID); replyErr == nil {
			roomID = reply.PostID
		}
	}
	s.publishEngagementEvent(ctx, notifications.VoteEvent(roomID, contentType, targetID, status))

	return c.JSON(status)
}

// GetContentVotes returns the stored vote aggregate for a post at call time.
// Never cached; two calls around a mutation always see the change.
func (s *Server) GetContentVotes(c *fiber.Ctx) error {
	ctx := c.UserContext()

	contentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	status, err := s.engagementService.GetStats(ctx, models.ContentTypePost, contentID, middleware.Identity(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(status)
}
