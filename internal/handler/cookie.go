package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmhlko/post-feed/internal/config"
)

const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/auth/refresh"
)

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

func NewCookieConfig(cfg config.AuthConfig, refreshTTL time.Duration) (CookieConfig, error) {
	secure, err := parseBool(cfg.CookieSecure, false)
	if err != nil {
		return CookieConfig{}, fmt.Errorf("invalid AUTH_COOKIE_SECURE: %w", err)
	}
	return CookieConfig{
		Name:     RefreshCookieName,
		Path:     RefreshCookiePath,
		Domain:   cfg.CookieDomain,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(refreshTTL.Seconds()),
	}, nil
}

func setRefreshCookie(c *gin.Context, cfg CookieConfig, token string) {
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func clearRefreshCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

// extractCookie reads one cookie from a raw Cookie header. Pairs are split
// on ';' and each pair on its first '='.
func extractCookie(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == name {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
