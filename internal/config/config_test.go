package config_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-bff/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"UPSTREAM_BASE_URL": "http://upstream.local/api/",
		"REDIS_URL":         "redis://localhost:6379/0",
		"APP_ENV":           "",
		"PORT":              "",
		"AUTH_COOKIE_NAME":  "",
		"MEMBER_DISCOUNT_BPS": "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":3000", cfg.HTTPAddr())
	require.Equal(t, "http://upstream.local/api", cfg.UpstreamBaseURL)
	require.Equal(t, "access_token", cfg.AuthCookieName)
	require.Equal(t, 200, cfg.MemberDiscountBps)
	require.Equal(t, time.Hour, cfg.AuthCookieTTL)
	require.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
}

func TestLoadRequiresUpstream(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"UPSTREAM_BASE_URL": "",
		"REDIS_URL":         "redis://localhost:6379/0",
	})
	require.Error(t, err)
}

func TestLoadRequiresRedis(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"UPSTREAM_BASE_URL": "http://upstream.local",
		"REDIS_URL":         "",
	})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"UPSTREAM_BASE_URL":   "http://upstream.local",
		"REDIS_URL":           "redis://localhost:6379/0",
		"PORT":                "8081",
		"MEMBER_DISCOUNT_BPS": "150",
		"CART_TTL":            "30m",
		"COOKIE_SAMESITE":     "strict",
		"CORS_ALLOWED_ORIGINS": "http://a.local, http://b.local",
	})
	require.NoError(t, err)
	require.Equal(t, ":8081", cfg.HTTPAddr())
	require.Equal(t, 150, cfg.MemberDiscountBps)
	require.Equal(t, 30*time.Minute, cfg.CartTTL)
	require.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite)
	require.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORSAllowedOrigins)
}
