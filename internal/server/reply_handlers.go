package server

import (
	"arcanum/internal/middleware"
	"arcanum/internal/models"
	"arcanum/internal/notifications"
	"arcanum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReply adds a reply to a post (protected; gated posts additionally
// require a granting access decision).
func (s *Server) CreateReply(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	reply, err := s.replyService.CreateReply(ctx, service.CreateReplyInput{
		PostID:        postID,
		ParentID:      req.ParentID,
		WalletAddress: middleware.Wallet(c),
		Content:       req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishEngagementEvent(ctx, notifications.ReplyEvent(postID, reply.ID, reply.ParentID))

	return c.Status(fiber.StatusCreated).JSON(reply)
}

// GetReplies returns the decoded reply forest for a post with per-reply vote
// stats. Replies on gated posts are visible only through a granting decision.
func (s *Server) GetReplies(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	decision, err := s.accessService.EvaluateForWallet(ctx, postID, middleware.Wallet(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	if !decision.HasAccess {
		return c.JSON(fiber.Map{
			"decision": decision,
			"replies":  []*models.ReplyNode{},
		})
	}

	forest, err := s.replyService.ListReplies(ctx, postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if forest == nil {
		forest = []*models.ReplyNode{}
	}
	return c.JSON(fiber.Map{
		"decision": decision,
		"replies":  forest,
	})
}
