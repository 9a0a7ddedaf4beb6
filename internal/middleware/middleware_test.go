package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/policy"
)

type stubVerifier map[string]models.Identity

func (s stubVerifier) VerifyToken(token string) (models.Identity, error) {
	id, ok := s[token]
	if !ok {
		return models.Identity{}, errors.New("bad token")
	}
	return id, nil
}

func newApp() *fiber.App {
	verifier := stubVerifier{
		"student-token":   {ID: 1, Role: models.RoleStudent},
		"librarian-token": {ID: 2, Role: models.RoleLibrarian},
	}
	app := fiber.New()
	app.Get("/me", Auth(verifier), func(c *fiber.Ctx) error {
		id, _ := CurrentIdentity(c)
		return c.JSON(id)
	})
	app.Get("/staff", Auth(verifier), RequireRole(policy.ManageCatalog), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Post("/small", LimitBody(8), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/unauthenticated-gate", RequireRole(policy.ManageCatalog), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuth(t *testing.T) {
	app := newApp()

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, `{"error":"Missing token"}`},
		{"no scheme", "student-token", http.StatusUnauthorized, `{"error":"Invalid token format"}`},
		{"wrong scheme", "Basic student-token", http.StatusUnauthorized, `{"error":"Invalid token format"}`},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, `{"error":"Invalid token format"}`},
		{"unknown token", "Bearer forged", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"valid", "Bearer student-token", http.StatusOK, ""},
		{"lowercase scheme", "bearer student-token", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			status, body := do(t, app, req)
			assert.Equal(t, tc.status, status)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, body)
			}
		})
	}
}

func TestAuthStoresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer librarian-token")

	status, body := do(t, newApp(), req)
	require.Equal(t, http.StatusOK, status)

	var id models.Identity
	require.NoError(t, json.Unmarshal([]byte(body), &id))
	assert.Equal(t, int64(2), id.ID)
	assert.Equal(t, models.RoleLibrarian, id.Role)
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"error":"Access denied"}`, body)

	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer librarian-token")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/unauthenticated-gate", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLimitBody(t *testing.T) {
	app := newApp()

	status, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/small", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, status)

	status, body := do(t, app, httptest.NewRequest(http.MethodPost, "/small", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.JSONEq(t, `{"error":"Request body too large"}`, body)
}
