// Package config builds the immutable process configuration from the
// environment. Every required value is checked once at start-up; the
// process must not serve traffic with a partial configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	envHydraAdminURL     = "HYDRA_ADMIN_URL"
	envHydraIssuer       = "HYDRA_ISSUER"
	envHydraClientID     = "HYDRA_CLIENT_ID"
	envHydraClientSecret = "HYDRA_CLIENT_SECRET"
	envKratosAdminURL    = "KRATOS_ADMIN_URL"
	envRedisAddr         = "REDIS_ADDR"
	envPublicURL         = "PUBLIC_URL"
	envSessionSecret     = "SESSION_SECRET"
	envAdminEmails       = "ADMIN_EMAILS"
	envListenAddr        = "LISTEN_ADDR"
	envEnvironment       = "ENV"
)

// Config carries every environment-derived value the console needs.
// It is constructed once in main and passed by reference; nothing reads
// the environment after start-up.
type Config struct {
	Env        string
	ListenAddr string
	PublicURL  string

	HydraAdminURL     string
	HydraIssuer       string
	HydraClientID     string
	HydraClientSecret string
	KratosAdminURL    string

	RedisAddr     string
	SessionSecret string

	AdminEmails []string

	adminSet map[string]struct{}
}

// FromEnv reads and validates the configuration. All problems are
// collected and reported together so an operator fixes the environment
// in one pass. Values are never logged in full.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:        getEnv(envEnvironment, "development"),
		ListenAddr: listenAddr(getEnv(envListenAddr, ":8080")),

		PublicURL:         strings.TrimSpace(os.Getenv(envPublicURL)),
		HydraAdminURL:     strings.TrimSpace(os.Getenv(envHydraAdminURL)),
		HydraIssuer:       strings.TrimSpace(os.Getenv(envHydraIssuer)),
		HydraClientID:     strings.TrimSpace(os.Getenv(envHydraClientID)),
		HydraClientSecret: strings.TrimSpace(os.Getenv(envHydraClientSecret)),
		KratosAdminURL:    strings.TrimSpace(os.Getenv(envKratosAdminURL)),
		RedisAddr:         strings.TrimSpace(os.Getenv(envRedisAddr)),
		SessionSecret:     strings.TrimSpace(os.Getenv(envSessionSecret)),
	}

	cfg.AdminEmails = splitEmails(os.Getenv(envAdminEmails))
	cfg.adminSet = make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		cfg.adminSet[strings.ToLower(email)] = struct{}{}
	}

	problems := map[string]string{}
	requireValue(problems, envHydraClientID, cfg.HydraClientID)
	requireValue(problems, envHydraClientSecret, cfg.HydraClientSecret)
	requireValue(problems, envRedisAddr, cfg.RedisAddr)
	requireValue(problems, envSessionSecret, cfg.SessionSecret)
	requireHTTPURL(problems, envHydraAdminURL, cfg.HydraAdminURL)
	requireHTTPURL(problems, envHydraIssuer, cfg.HydraIssuer)
	requireHTTPURL(problems, envKratosAdminURL, cfg.KratosAdminURL)
	requireHTTPURL(problems, envPublicURL, cfg.PublicURL)
	if len(cfg.AdminEmails) == 0 {
		problems[envAdminEmails] = "at least one administrator email is required"
	}

	logSnapshot(cfg)

	if len(problems) > 0 {
		keys := make([]string, 0, len(problems))
		for key := range problems {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			log.Error().Str("key", key).Str("value", Redact(os.Getenv(key))).Msg(problems[key])
		}
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(keys, ", "))
	}

	return cfg, nil
}

// IsAdmin reports whether the email is on the administrator allow-list.
// Matching is case-insensitive.
func (c *Config) IsAdmin(email string) bool {
	if c == nil || email == "" {
		return false
	}
	_, ok := c.adminSet[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Production reports whether the process runs with production settings,
// which controls the Secure flag on session cookies.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Redact keeps a 5-character prefix of a secret for diagnostics.
func Redact(value string) string {
	if value == "" {
		return "(missing)"
	}
	if len(value) <= 5 {
		return value[:1] + "*****"
	}
	return value[:5] + "*****"
}

func logSnapshot(cfg *Config) {
	log.Info().
		Str(envEnvironment, cfg.Env).
		Str(envListenAddr, cfg.ListenAddr).
		Str(envPublicURL, Redact(cfg.PublicURL)).
		Str(envHydraAdminURL, Redact(cfg.HydraAdminURL)).
		Str(envHydraIssuer, Redact(cfg.HydraIssuer)).
		Str(envHydraClientID, Redact(cfg.HydraClientID)).
		Str(envHydraClientSecret, Redact(cfg.HydraClientSecret)).
		Str(envKratosAdminURL, Redact(cfg.KratosAdminURL)).
		Str(envRedisAddr, Redact(cfg.RedisAddr)).
		Str(envSessionSecret, Redact(cfg.SessionSecret)).
		Int("admin_emails", len(cfg.AdminEmails)).
		Msg("environment snapshot")
}

func requireValue(problems map[string]string, key string, value string) {
	if value == "" {
		problems[key] = key + " is required"
	}
}

func requireHTTPURL(problems map[string]string, key string, value string) {
	if value == "" {
		problems[key] = key + " is required"
		return
	}
	parsed, err := url.Parse(value)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		problems[key] = key + " must be an absolute http(s) URL"
	}
}

func splitEmails(raw string) []string {
	parts := strings.Split(raw, ",")
	emails := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		emails = append(emails, trimmed)
	}
	return emails
}

func listenAddr(raw string) string {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return ":8080"
	}
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
