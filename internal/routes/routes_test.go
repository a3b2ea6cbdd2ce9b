package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/propertybot-backend/internal/handlers"
	"github.com/Ananth-NQI/propertybot-backend/internal/services"
	"github.com/Ananth-NQI/propertybot-backend/internal/storage"
)

type echoRouter struct{}

func (echoRouter) Route(ctx context.Context, text, userID string) services.OutboundAction {
	return services.OutboundAction{Kind: services.ActionGenerated, Text: text}
}

type noStats struct{}

func (noStats) Stats() services.SessionStats { return services.SessionStats{} }

func newApp(t *testing.T, validate bool) *fiber.App {
	t.Helper()
	return newAppWith(t, func(opts *Options) {
		opts.ValidateWebhooks = validate
	})
}

const testAdminKey = "admin-key"

func newAppWith(t *testing.T, mutate func(*Options)) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "layouts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts", "villa-one.jpg"), []byte("jpeg"), 0o644))

	opts := Options{
		WhatsApp:        handlers.NewWhatsAppHandler(echoRouter{}, nil),
		Health:          handlers.NewHealthHandler("test", noStats{}, nil),
		Admin:           handlers.NewAdminHandler(storage.NewMemoryStore(), noStats{}),
		TwilioAuthToken: "token",
		AdminAPIKey:     testAdminKey,
		PublicURL:       "https://bot.example.com",
		ImagesDir:       dir,
		Version:         "test",
	}
	if mutate != nil {
		mutate(&opts)
	}

	app := fiber.New()
	SetupRoutes(app, opts)
	return app
}

func TestSetupRoutes_Endpoints(t *testing.T) {
	app := newApp(t, false)

	for _, path := range []string{"/", "/health", "/admin/leads", "/admin/sessions"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+testAdminKey)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestSetupRoutes_AdminAccess(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		open   bool
		header string
		status int
	}{
		{name: "key required", key: testAdminKey, status: fiber.StatusUnauthorized},
		{name: "wrong key", key: testAdminKey, header: "Bearer nope", status: fiber.StatusUnauthorized},
		{name: "right key", key: testAdminKey, header: "Bearer " + testAdminKey, status: fiber.StatusOK},
		{name: "key wins over open", key: testAdminKey, open: true, status: fiber.StatusUnauthorized},
		{name: "open without key", open: true, status: fiber.StatusOK},
		{name: "disabled without key", status: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAppWith(t, func(opts *Options) {
				opts.AdminAPIKey = tt.key
				opts.OpenAdmin = tt.open
			})

			req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestSetupRoutes_ServesImagesWithCache(t *testing.T) {
	app := newApp(t, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/images/layouts/villa-one.jpg", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
}

func TestSetupRoutes_WebhookValidation(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+968"}, "Body": {"hi"}}.Encode()

	for _, tt := range []struct {
		validate bool
		status   int
	}{
		{validate: true, status: fiber.StatusUnauthorized},
		{validate: false, status: fiber.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := newApp(t, tt.validate).Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode)
	}
}
