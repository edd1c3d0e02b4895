package server

import (
	"time"

	"arcanum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// sessionTokenTTL bounds how long an issued session token stays valid.
const sessionTokenTTL = 24 * time.Hour

// RegisterSession registers a wallet session and returns its identity plus a
// signed session token. Registration is idempotent: the same wallet always
// maps to the same identity, no matter how many tabs race on this endpoint.
func (s *Server) RegisterSession(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req struct {
		WalletAddress string `json:"wallet_address"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	session, err := s.identityService.Register(ctx, req.WalletAddress)
	if err != nil {
		return respondServiceError(c, err)
	}

	claims := jwt.MapClaims{
		"sub": session.WalletAddress,
		"idn": session.Identity,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(sessionTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"wallet_address": session.WalletAddress,
		"identity":       session.Identity,
		"token":          signed,
	})
}
