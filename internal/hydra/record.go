// Package hydra talks to the authorization server's admin API and owns
// the OAuth client record handling that runs before anything is sent
// upstream.
package hydra

// OAuth2Client mirrors the authorization server's client record. The
// server owns the record's lifecycle; the console only edits and relays
// it, so every field is optional on the wire.
type OAuth2Client struct {
	ClientID              string `json:"client_id,omitempty"`
	ClientName            string `json:"client_name,omitempty"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at,omitempty"`
	Owner                 string `json:"owner,omitempty"`

	ClientURI string   `json:"client_uri,omitempty"`
	LogoURI   string   `json:"logo_uri,omitempty"`
	TOSURI    string   `json:"tos_uri,omitempty"`
	PolicyURI string   `json:"policy_uri,omitempty"`
	Contacts  []string `json:"contacts,omitempty"`

	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	SubjectType             string   `json:"subject_type,omitempty"`
	AccessTokenStrategy     string   `json:"access_token_strategy,omitempty"`

	RedirectURIs           []string `json:"redirect_uris,omitempty"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty"`
	RequestURIs            []string `json:"request_uris,omitempty"`
	AllowedCORSOrigins     []string `json:"allowed_cors_origins,omitempty"`

	JWKSURI                 string   `json:"jwks_uri,omitempty"`
	JWKS                    any      `json:"jwks,omitempty"`
	SectorIdentifierURI     string   `json:"sector_identifier_uri,omitempty"`
	RequestObjectSigningAlg string   `json:"request_object_signing_alg,omitempty"`
	Audience                []string `json:"audience,omitempty"`

	BackchannelLogoutCallback         string `json:"backchannel_logout_callback,omitempty"`
	BackchannelLogoutSessionRequired  bool   `json:"backchannel_logout_session_required,omitempty"`
	FrontchannelLogoutCallback        string `json:"frontchannel_logout_callback,omitempty"`
	FrontchannelLogoutSessionRequired bool   `json:"frontchannel_logout_session_required,omitempty"`

	SkipConsent       bool `json:"skip_consent,omitempty"`
	SkipLogoutConsent bool `json:"skip_logout_consent,omitempty"`

	Metadata any `json:"metadata,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
