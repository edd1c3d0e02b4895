package server

import (
	"arcanum/internal/middleware"
	"arcanum/internal/models"
	"arcanum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListContent returns the newest content items without bodies (public).
func (s *Server) ListContent(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := parsePagination(c, 20)

	contents, err := s.contentService.List(ctx, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if contents == nil {
		contents = []*models.Content{}
	}
	return c.JSON(fiber.Map{"content": contents})
}

// IngestContent stores a content item announced by a chain event (public;
// the chain relay posts here). Replays of the same chain_ref are idempotent.
func (s *Server) IngestContent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req struct {
		Title          string   `json:"title"`
		Body           string   `json:"body"`
		Tier           string   `json:"tier"`
		UnlockPrice    *float64 `json:"unlock_price"`
		AuthorIdentity string   `json:"author_identity"`
		ChainRef       string   `json:"chain_ref"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	content, err := s.contentService.Ingest(ctx, service.IngestInput{
		Title:          req.Title,
		Body:           req.Body,
		Tier:           models.VisibilityTier(req.Tier),
		UnlockPrice:    req.UnlockPrice,
		AuthorIdentity: req.AuthorIdentity,
		ChainRef:       req.ChainRef,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(content)
}

// GetContent returns one content item with a freshly evaluated access
// decision for the caller. The body is present only when the decision
// grants access.
func (s *Server) GetContent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	contentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	view, err := s.contentService.View(ctx, contentID, middleware.Wallet(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}
