package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alimflow/internal/middleware"
	"alimflow/internal/workspace"
)

type fakeWorkspaces struct{}

func (fakeWorkspaces) GetWorkspacesByUser(userID uint64) ([]workspace.Workspace, error) {
	return []workspace.Workspace{{ID: 1, WorkspaceName: "스토어"}}, nil
}

type client struct {
	t       *testing.T
	app     *fiber.App
	cookies []*http.Cookie
}

func (cl *client) do(method, path, body string) (*http.Response, map[string]interface{}) {
	cl.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	resp, err := cl.app.Test(req)
	require.NoError(cl.t, err)
	if got := resp.Cookies(); len(got) > 0 {
		cl.cookies = got
	}
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	return resp, out
}

func newTestClient(t *testing.T) (*client, *fakeUsers) {
	repo := newFakeUsers()
	store := session.New()
	h := NewAuthHandler(NewService(repo), store, fakeWorkspaces{})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	authGroup := app.Group("/auth")
	authGroup.Post("/register", h.HandleRegister)
	authGroup.Post("/login", h.HandleLogin)
	authGroup.Get("/setup-otp", h.HandleShowSetupOTP)
	authGroup.Post("/setup-otp", h.HandleProcessSetupOTP)
	authGroup.Post("/verify-otp", h.HandleProcessVerifyOTP)
	authGroup.Post("/logout", h.HandleLogout)
	app.Get("/me", middleware.AuthMiddleware(store), h.HandleMe)

	return &client{t: t, app: app}, repo
}

func TestLoginFlow(t *testing.T) {
	cl, repo := newTestClient(t)

	resp, _ := cl.do(http.MethodPost, "/auth/register", `{"user_name":"김개발","email":"dev@example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = cl.do(http.MethodPost, "/auth/login", `{"email":"dev@example.com"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = cl.do(http.MethodPost, "/auth/login", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	repo.users["dev@example.com"].VerifyYn = true

	resp, body := cl.do(http.MethodPost, "/auth/login", `{"email":"dev@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/auth/setup-otp", body["next"])

	resp, body = cl.do(http.MethodGet, "/auth/setup-otp", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	secret := body["secret"].(string)
	assert.NotEmpty(t, body["qr_image"])

	resp, body = cl.do(http.MethodPost, "/auth/setup-otp", `{"otp_token":"000000x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "otp_token", body["field"])

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	resp, _ = cl.do(http.MethodPost, "/auth/setup-otp", `{"otp_token":"`+code+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, secret, *repo.users["dev@example.com"].OtpCode)

	resp, body = cl.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["workspaces"], 1)

	resp, _ = cl.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestVerifyOTPFlow(t *testing.T) {
	cl, repo := newTestClient(t)
	secret := "JBSWY3DPEHPK3PXP"
	repo.users["old@example.com"] = &User{ID: 7, Email: "old@example.com", VerifyYn: true, OtpCode: &secret, PrivilegesType: RoleUsers}

	resp, _ := cl.do(http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := cl.do(http.MethodPost, "/auth/login", `{"email":"old@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/auth/verify-otp", body["next"])

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	resp, _ = cl.do(http.MethodPost, "/auth/verify-otp", `{"otp_token":"`+code+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, repo.users["old@example.com"].LastLoginDt)

	resp, _ = cl.do(http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupOTPRequiresLogin(t *testing.T) {
	cl, _ := newTestClient(t)
	resp, _ := cl.do(http.MethodGet, "/auth/setup-otp", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
