package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/lib"
)

const secret = "test-secret"

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", ProtectRoute(secret), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app
}

func get(t *testing.T, app *fiber.App, auth string) (int, string) {
	t.Helper()
	return getPath(t, app, "/me", auth)
}

func getPath(t *testing.T, app *fiber.App, path, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestProtectRouteAcceptsSubject(t *testing.T) {
	token, err := lib.GenerateJWT(secret, "user_123", time.Hour)
	require.NoError(t, err)

	status, body := get(t, newApp(), "Bearer "+token)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "user_123", body)
}

func TestProtectRouteAcceptsLegacyUserIDClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "user_456",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	status, body := get(t, newApp(), "Bearer "+token)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "user_456", body)
}

func TestProtectRouteAcceptsQueryToken(t *testing.T) {
	token, err := lib.GenerateJWT(secret, "user_789", time.Hour)
	require.NoError(t, err)

	status, body := getPath(t, newApp(), "/me?token="+token, "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "user_789", body)
}

func TestProtectRouteRejects(t *testing.T) {
	expired, err := lib.GenerateJWT(secret, "user_1", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := lib.GenerateJWT("other", "user_1", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": "Token abc",
		"garbage":   "Bearer not-a-jwt",
		"expired":   "Bearer " + expired,
		"wrong key": "Bearer " + wrongKey,
	} {
		status, body := get(t, newApp(), header)
		require.Equal(t, fiber.StatusUnauthorized, status, name)
		require.JSONEq(t, `{"success":false,"message":"Not authenticated"}`, body, name)
	}
}
