package lib

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bubtconnect/backend/src/apperr"
)

// Returns a map with a message key for API responses
func MessageResponse(message string) fiber.Map {
	return fiber.Map{
		"success": true,
		"message": message,
	}
}

// SuccessResponse writes a success envelope carrying the given fields.
func SuccessResponse(c *fiber.Ctx, status int, fields fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// ErrorResponse maps err to its status code and a failure envelope.
// Internal errors are logged and hidden from the caller.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(apperr.KindOf(err))
	if status >= fiber.StatusInternalServerError {
		slog.Error("❌ Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": apperr.MessageOf(err),
	})
}

// Generates a signed HS256 token whose subject is the user id
func GenerateJWT(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verifies and decodes a JWT token, returning its claims
func VerifyJWT(secret, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// IdentityFromClaims returns the user id carried by the token, taken from
// the sub claim or, for older tokens, userId.
func IdentityFromClaims(claims jwt.MapClaims) (string, bool) {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, true
	}
	if id, ok := claims["userId"].(string); ok && id != "" {
		return id, true
	}
	return "", false
}
