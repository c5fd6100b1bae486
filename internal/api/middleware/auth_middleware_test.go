package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/dmflow/configs"
	"github.com/maheshrc27/dmflow/pkg/utils"
)

const testSecret = "middleware-test-secret"

func newApp() *fiber.App {
	cfg := config.Config{SecretKey: testSecret, CookieName: "dmflow_session"}
	app := fiber.New()
	api := app.Group("/api")
	api.Use(NewAuthMiddleware(cfg).AuthMiddleware())
	api.Get("/whoami", func(c *fiber.Ctx) error {
		operator, _ := c.Locals("operator").(string)
		return c.SendString(operator)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp()

	token, err := utils.GenerateToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(testSecret, "ops", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.GenerateToken("other-secret", "ops", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{name: "Missing", wantStatus: http.StatusUnauthorized},
		{name: "Bearer", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "LowercaseScheme", header: "bearer " + token, wantStatus: http.StatusOK},
		{name: "Cookie", cookie: token, wantStatus: http.StatusOK},
		{name: "Expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "WrongSecret", cookie: foreign, wantStatus: http.StatusUnauthorized},
		{name: "BasicScheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "dmflow_session", Value: tt.cookie})
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, "ops", string(body))
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("Token abc"))
}
