package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alimflow/internal/apperr"
)

type members map[uint64]bool

func (m members) IsMember(workspaceID, userID uint64) (bool, error) {
	return m[userID], nil
}

func newApp(role string, userID uint64, check MembershipChecker) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	})
	ws := app.Group("/workspace/:wid", WorkspaceMiddleware(check))
	ws.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"workspace_id": c.Locals("workspace_id")})
	})
	ws.Get("/fail", func(c *fiber.Ctx) error {
		return apperr.Invalid("content", "본문을 입력하세요.")
	})
	ws.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("db down: secret detail")
	})
	app.Get("/admin", AdminOnlyMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWorkspaceMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		userID uint64
		path   string
		status int
	}{
		{"member", "USERS", 1, "/workspace/5/ping", http.StatusOK},
		{"not a member", "USERS", 2, "/workspace/5/ping", http.StatusForbidden},
		{"admin bypasses membership", "ADMIN", 2, "/workspace/5/ping", http.StatusOK},
		{"invalid workspace id", "USERS", 1, "/workspace/abc/ping", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(tt.role, tt.userID, members{1: true})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestErrorHandlerJSON(t *testing.T) {
	app := newApp("USERS", 1, members{1: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workspace/5/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.Equal(t, "content", body["field"])
	assert.Equal(t, "본문을 입력하세요.", body["message"])
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	app := newApp("USERS", 1, members{1: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workspace/5/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, body["message"], "secret detail")
}

func TestErrorHandlerNotFoundRoute(t *testing.T) {
	app := newApp("USERS", 1, members{1: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode(t, resp)["code"])
}

func TestUnauthorizedPageRedirectsToLogin(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/dashboard", func(c *fiber.Ctx) error {
		return apperr.New(apperr.ErrUnauthorized, "로그인이 필요합니다.")
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Header.Get("Location"))
}

func TestAdminOnly(t *testing.T) {
	resp, err := newApp("USERS", 1, members{}).Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = newApp("ADMIN", 1, members{}).Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
