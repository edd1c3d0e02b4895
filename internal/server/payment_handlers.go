package server

import (
	"arcanum/internal/middleware"
	"arcanum/internal/models"
	"arcanum/internal/service"

	"github.com/gofiber/fiber/v2"
)

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

// UnlockContent runs the unlock payment flow: submit, await the confirmation
// signal, record the grant, re-evaluate. An error response means no grant was
// written; unconfirmed payments read exactly like failed ones.
func (s *Server) UnlockContent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	contentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req paymentRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	result, err := s.accessService.Unlock(ctx, service.PaymentInput{
		ContentID:     contentID,
		WalletAddress: middleware.Wallet(c),
		Amount:        req.Amount,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// TipContent runs the tip payment flow. Tips are never deduplicated; each
// confirmed tip appends another ledger event.
func (s *Server) TipContent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	contentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req paymentRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	result, err := s.accessService.Tip(ctx, service.PaymentInput{
		ContentID:     contentID,
		WalletAddress: middleware.Wallet(c),
		Amount:        req.Amount,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}
