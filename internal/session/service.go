package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	cookieName = "console_session"

	sessionKeyPrefix   = "sess:"
	authStateKeyPrefix = "authstate:"

	authStateTTL      = 10 * time.Minute
	defaultSessionTTL = 12 * time.Hour
)

// Record is the externally persisted session: who the operator is
// according to the identity issuer. Authorization (the allow-list
// check) happens per request, not here.
type Record struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authState struct {
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"code_verifier"`
	ReturnTo     string `json:"return_to"`
}

// Config wires the federated-login relying party.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	// PublicURL is the console's own origin; the OIDC callback lands on
	// PublicURL + /auth/callback.
	PublicURL string
	// Secret signs session cookie values so a stolen Redis key id alone
	// is not a session.
	Secret string
	Secure bool
	TTL    time.Duration
	// IsAdmin answers the allow-list question for the status endpoint.
	IsAdmin func(email string) bool
}

// Service handles operator sign-in, sign-out, and session lookup.
type Service struct {
	store    StateStore
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
	secret   []byte
	secure   bool
	ttl      time.Duration
	isAdmin  func(email string) bool
}

// New discovers the issuer's endpoints and builds the service. Discovery
// happens once at start-up; a dead issuer aborts the process rather than
// serving a console nobody can sign in to.
func New(ctx context.Context, cfg Config, store StateStore) (*Service, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("session: issuer discovery failed: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	isAdmin := cfg.IsAdmin
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}

	return &Service{
		store: store,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  strings.TrimRight(cfg.PublicURL, "/") + "/auth/callback",
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		secret:   []byte(cfg.Secret),
		secure:   cfg.Secure,
		ttl:      ttl,
		isAdmin:  isAdmin,
	}, nil
}

// RegisterRoutes mounts the sign-in flow on the root router.
func RegisterRoutes(e *echo.Echo, s *Service) {
	e.GET("/auth/sign-in", s.SignIn)
	e.GET("/auth/callback", s.Callback)
	e.POST("/auth/sign-out", s.SignOut)
	e.GET("/auth/session", s.Status)
}

// SignIn stores a one-time login state and redirects the operator to
// the issuer's authorization endpoint with state, nonce, and PKCE.
func (s *Service) SignIn(c echo.Context) error {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	login := authState{
		Nonce:        uuid.NewString(),
		CodeVerifier: verifier,
		ReturnTo:     safeReturnTo(c.QueryParam("return_to")),
	}

	encoded, err := json.Marshal(login)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to begin sign-in")
	}
	if err := s.store.Set(c.Request().Context(), authStateKeyPrefix+state, encoded, authStateTTL); err != nil {
		log.Err(err).Msg("failed to persist login state")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to begin sign-in")
	}

	authURL := s.oauth.AuthCodeURL(state,
		oidc.Nonce(login.Nonce),
		oauth2.S256ChallengeOption(verifier),
	)
	return c.Redirect(http.StatusFound, authURL)
}

// Callback finishes the authorization-code flow: state is single-use,
// the ID token is verified against the issuer, and the nonce must match
// before a session exists.
func (s *Service) Callback(c echo.Context) error {
	ctx := c.Request().Context()

	if errParam := c.QueryParam("error"); errParam != "" {
		return writeError(c, http.StatusBadRequest,
			fmt.Sprintf("authorization failed: %s - %s", errParam, c.QueryParam("error_description")))
	}
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return writeError(c, http.StatusBadRequest, "missing code or state parameter")
	}

	raw, err := s.store.Get(ctx, authStateKeyPrefix+state)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid state parameter")
	}
	if err := s.store.Del(ctx, authStateKeyPrefix+state); err != nil {
		log.Err(err).Msg("failed to delete login state")
		return writeError(c, http.StatusInternalServerError, "failed to complete sign-in")
	}
	var login authState
	if err := json.Unmarshal(raw, &login); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid state parameter")
	}

	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(login.CodeVerifier))
	if err != nil {
		log.Err(err).Msg("token exchange failed")
		return writeError(c, http.StatusInternalServerError, "token exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return writeError(c, http.StatusInternalServerError, "no id token in response")
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		log.Err(err).Msg("id token verification failed")
		return writeError(c, http.StatusInternalServerError, "id token verification failed")
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return writeError(c, http.StatusInternalServerError, "failed to extract claims")
	}
	if claims.Nonce != login.Nonce {
		return writeError(c, http.StatusUnauthorized, "invalid nonce")
	}

	now := time.Now().UTC()
	record := Record{
		Subject:   idToken.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	sessionID := uuid.NewString()
	encoded, err := json.Marshal(record)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "failed to create session")
	}
	if err := s.store.Set(ctx, sessionKeyPrefix+sessionID, encoded, s.ttl); err != nil {
		log.Err(err).Msg("failed to persist session")
		return writeError(c, http.StatusInternalServerError, "failed to create session")
	}

	s.setCookie(c, s.signCookieValue(sessionID), int(s.ttl.Seconds()))
	log.Info().Str("subject", record.Subject).Str("email", record.Email).Msg("operator signed in")

	returnTo := login.ReturnTo
	if returnTo == "" {
		returnTo = "/"
	}
	return c.Redirect(http.StatusFound, returnTo)
}

// SignOut deletes the stored session and expires the cookie. Signing
// out without a session is not an error.
func (s *Service) SignOut(c echo.Context) error {
	if sessionID, ok := s.sessionIDFromCookie(c); ok {
		if err := s.store.Del(c.Request().Context(), sessionKeyPrefix+sessionID); err != nil {
			log.Err(err).Msg("failed to delete session")
		}
	}
	s.setCookie(c, "", -1)
	return c.NoContent(http.StatusNoContent)
}

// Status tells the front end who is signed in and whether the operator
// is on the administrator allow-list.
func (s *Service) Status(c echo.Context) error {
	record, ok := s.SessionFrom(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "Unauthorized")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"email": record.Email,
		"name":  record.Name,
		"admin": s.isAdmin(record.Email),
	})
}

// SessionFrom resolves the request's session record, if any. The cookie
// signature is checked before the store is consulted.
func (s *Service) SessionFrom(c echo.Context) (*Record, bool) {
	sessionID, ok := s.sessionIDFromCookie(c)
	if !ok {
		return nil, false
	}
	raw, err := s.store.Get(c.Request().Context(), sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, false
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false
	}
	if !record.ExpiresAt.IsZero() && record.ExpiresAt.Before(time.Now()) {
		return nil, false
	}
	return &record, true
}

func (s *Service) sessionIDFromCookie(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return s.verifyCookieValue(cookie.Value)
}

func (s *Service) signCookieValue(sessionID string) string {
	return sessionID + "." + s.signature(sessionID)
}

func (s *Service) verifyCookieValue(value string) (string, bool) {
	sessionID, sig, ok := strings.Cut(value, ".")
	if !ok || sessionID == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.signature(sessionID))) {
		return "", false
	}
	return sessionID, true
}

func (s *Service) signature(sessionID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Service) setCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeReturnTo only honours local paths so the callback cannot be
// turned into an open redirect.
func safeReturnTo(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return ""
	}
	return raw
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
