package server

import (
	"arcanum/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns the evaluated flag set for the calling viewer.
// Percentage rollouts are deterministic per identity, so the same viewer
// always sees the same answer.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.flags.Snapshot(middleware.Identity(c)),
	})
}
