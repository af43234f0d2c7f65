package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gestao-publica/procurement-api/internal/config"
	"github.com/gestao-publica/procurement-api/internal/http/middleware"
)

func serveWithHeaders(cfg *config.SecurityConfig) http.Header {
	handler := middleware.SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	t.Run("full configuration", func(t *testing.T) {
		headers := serveWithHeaders(&config.SecurityConfig{
			EnableHSTS:            true,
			HSTSMaxAge:            31536000,
			HSTSIncludeSubdomains: true,
			HSTSPreload:           true,
			ContentSecurityPolicy: "default-src 'self'",
			FrameOptions:          "DENY",
			ContentTypeNosniff:    true,
			XSSProtection:         "1; mode=block",
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			PermissionsPolicy:     "geolocation=()",
		})

		assert.Equal(t, "max-age=31536000; includeSubDomains; preload", headers.Get("Strict-Transport-Security"))
		assert.Equal(t, "default-src 'self'", headers.Get("Content-Security-Policy"))
		assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
		assert.Equal(t, "1; mode=block", headers.Get("X-XSS-Protection"))
		assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
		assert.Equal(t, "geolocation=()", headers.Get("Permissions-Policy"))
	})

	t.Run("hsts disabled", func(t *testing.T) {
		headers := serveWithHeaders(&config.SecurityConfig{
			EnableHSTS: false,
			HSTSMaxAge: 31536000,
		})
		assert.Empty(t, headers.Get("Strict-Transport-Security"))
	})

	t.Run("hsts without subdomains or preload", func(t *testing.T) {
		headers := serveWithHeaders(&config.SecurityConfig{
			EnableHSTS: true,
			HSTSMaxAge: 3600,
		})
		assert.Equal(t, "max-age=3600", headers.Get("Strict-Transport-Security"))
	})

	t.Run("empty values set nothing", func(t *testing.T) {
		headers := serveWithHeaders(&config.SecurityConfig{})
		for _, name := range []string{
			"Content-Security-Policy",
			"X-Frame-Options",
			"X-Content-Type-Options",
			"X-XSS-Protection",
			"Referrer-Policy",
			"Permissions-Policy",
		} {
			assert.Empty(t, headers.Get(name), name)
		}
	})
}
