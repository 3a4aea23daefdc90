package utils

import (
	"fmt"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenAlphabet  = "0123456789abcdef"
	tokenLength    = 40
)

// GenerateShortID generates a short ID (first char alphabetic, rest alphanumeric)
func GenerateShortID() string {
	firstChar, _ := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz", 1)
	rest, _ := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 19)
	return firstChar + rest
}

// GenerateSecret returns a random alphanumeric string of the given length
// drawn from crypto/rand.
func GenerateSecret(length int) (string, error) {
	secret, err := gonanoid.Generate(secretAlphabet, length)
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}

// GenerateToken returns a 40 char hex token for API webhook authentication
func GenerateToken() (string, error) {
	token, err := gonanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// GetClientIP extracts client IP from Fiber request
func GetClientIP(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := c.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return c.IP()
}

// GenerateJWT issues a bearer token for the management API
func GenerateJWT(userID, email string, ttl time.Duration) (string, error) {
	cfg := config.Get()
	claims := jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"exp":    time.Now().Add(ttl).Unix(),
		"iat":    time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}
