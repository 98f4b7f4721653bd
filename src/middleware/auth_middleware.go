package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/lib"
)

const userIDKey = "userId"

// ProtectRoute returns a middleware that checks for a valid bearer token
// and attaches the caller's identity to the request context. Browsers
// cannot set headers on an EventSource, so a token query parameter is
// accepted when the header is absent.
func ProtectRoute(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			var ok bool
			if token, ok = strings.CutPrefix(authHeader, "Bearer "); !ok {
				return lib.ErrorResponse(c, apperr.ErrNotAuthenticated)
			}
		} else {
			token = c.Query("token")
		}
		if token == "" {
			return lib.ErrorResponse(c, apperr.ErrNotAuthenticated)
		}

		claims, err := lib.VerifyJWT(secret, token)
		if err != nil {
			return lib.ErrorResponse(c, apperr.ErrNotAuthenticated)
		}

		userID, ok := lib.IdentityFromClaims(claims)
		if !ok {
			return lib.ErrorResponse(c, apperr.ErrNotAuthenticated)
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the identity ProtectRoute attached to the request.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
