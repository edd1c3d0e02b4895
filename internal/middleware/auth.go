// Package middleware provides authentication, rate limiting and request
// logging middleware for the application.
package middleware

import (
	"strings"

	"arcanum/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// Locals keys set by the auth middleware.
const (
	LocalWallet   = "wallet"
	LocalIdentity = "identity"
)

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// walletClaims extracts the wallet (sub) and identity (idn) claims from a
// signed session token.
func walletClaims(tokenString string) (wallet, identity string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	wallet, ok = claims["sub"].(string)
	if !ok || wallet == "" {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Token missing wallet subject")
	}
	identity, ok = claims["idn"].(string)
	if !ok || identity == "" {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Token missing identity claim")
	}
	return wallet, identity, nil
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// AuthRequired enforces a wallet session token on protected routes.
func AuthRequired(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	wallet, identity, err := walletClaims(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals(LocalWallet, wallet)
	c.Locals(LocalIdentity, identity)
	return c.Next()
}

// AuthOptional attaches wallet claims when a valid token is present and lets
// the request through either way. Read paths use it so anonymous viewers get
// locked decisions instead of 401s.
func AuthOptional(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Next()
	}
	wallet, identity, err := walletClaims(token)
	if err != nil {
		// A bad token on an optional route is treated as no token.
		return c.Next()
	}
	c.Locals(LocalWallet, wallet)
	c.Locals(LocalIdentity, identity)
	return c.Next()
}

// WebSocketAuthOptional validates a token from the query string for websocket
// upgrades, falling back to the Authorization header. Missing or invalid
// tokens leave the connection anonymous.
func WebSocketAuthOptional(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		return c.Next()
	}
	wallet, identity, err := walletClaims(token)
	if err != nil {
		return c.Next()
	}
	c.Locals(LocalWallet, wallet)
	c.Locals(LocalIdentity, identity)
	return c.Next()
}

// Wallet returns the authenticated wallet address, or "" when anonymous.
func Wallet(c *fiber.Ctx) string {
	if w, ok := c.Locals(LocalWallet).(string); ok {
		return w
	}
	return ""
}

// Identity returns the authenticated identity, or "" when anonymous.
func Identity(c *fiber.Ctx) string {
	if id, ok := c.Locals(LocalIdentity).(string); ok {
		return id
	}
	return ""
}
