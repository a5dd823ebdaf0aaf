package hydra

import (
	"fmt"
	"strings"
)

// AppType names a client archetype for quick creation.
type AppType string

const (
	AppTypeSPA     AppType = "spa"
	AppTypeBFF     AppType = "bff"
	AppTypeAPI     AppType = "api"
	AppTypeNative  AppType = "native"
	AppTypeService AppType = "service"
)

// QuickCreateInput is the small form solicited per archetype. Fields
// that do not apply to the chosen archetype are ignored.
type QuickCreateInput struct {
	AppType            AppType  `json:"app_type"`
	ClientName         string   `json:"client_name"`
	RedirectURIs       []string `json:"redirect_uris"`
	AllowedCORSOrigins []string `json:"allowed_cors_origins"`
	Audience           []string `json:"audience"`
	Scope              string   `json:"scope"`
}

// RequiresRedirectURIs reports whether the archetype describes a client
// that participates in browser redirects.
func (t AppType) RequiresRedirectURIs() bool {
	return t != AppTypeAPI && t != AppTypeService
}

func (t AppType) valid() bool {
	switch t {
	case AppTypeSPA, AppTypeBFF, AppTypeAPI, AppTypeNative, AppTypeService:
		return true
	}
	return false
}

// BuildQuickClient expands an archetype into a pre-filled client record.
// The mapping encodes which OAuth flow suits which application shape:
// browser and native apps get the authorization-code flow (public for
// spa/native, confidential for bff), machine clients get client
// credentials.
func BuildQuickClient(in QuickCreateInput) (OAuth2Client, FieldErrors) {
	errs := FieldErrors{}

	if !in.AppType.valid() {
		errs["app_type"] = fmt.Sprintf("Unknown app type %q.", string(in.AppType))
	}
	if strings.TrimSpace(in.ClientName) == "" {
		errs["client_name"] = "Client name is required."
	}

	redirectURIs := dropBlanks(in.RedirectURIs)
	corsOrigins := dropBlanks(in.AllowedCORSOrigins)
	audience := dropBlanks(in.Audience)

	if in.AppType.RequiresRedirectURIs() {
		if len(redirectURIs) == 0 {
			errs["redirect_uris"] = "Provide at least one redirect URI."
		}
		for _, uri := range redirectURIs {
			if msg := validateURL(uri, "Redirect URIs"); msg != "" {
				errs["redirect_uris"] = msg
				break
			}
		}
	}
	for _, origin := range corsOrigins {
		if msg := validateURL(origin, "Allowed CORS origins"); msg != "" {
			errs["allowed_cors_origins"] = msg
			break
		}
	}

	if len(errs) > 0 {
		return OAuth2Client{}, errs
	}

	rec := OAuth2Client{
		ClientName: strings.TrimSpace(in.ClientName),
		Scope:      strings.TrimSpace(in.Scope),
	}

	switch in.AppType {
	case AppTypeSPA:
		rec.GrantTypes = []string{"authorization_code"}
		rec.ResponseTypes = []string{"code"}
		rec.TokenEndpointAuthMethod = "none"
		rec.RedirectURIs = redirectURIs
		rec.AllowedCORSOrigins = corsOrigins
	case AppTypeBFF:
		rec.GrantTypes = []string{"authorization_code", "refresh_token"}
		rec.ResponseTypes = []string{"code"}
		rec.TokenEndpointAuthMethod = "client_secret_basic"
		rec.RedirectURIs = redirectURIs
	case AppTypeNative:
		rec.GrantTypes = []string{"authorization_code", "refresh_token"}
		rec.ResponseTypes = []string{"code"}
		rec.TokenEndpointAuthMethod = "none"
		rec.RedirectURIs = redirectURIs
	case AppTypeAPI, AppTypeService:
		rec.GrantTypes = []string{"client_credentials"}
		rec.ResponseTypes = nil
		rec.TokenEndpointAuthMethod = "client_secret_basic"
		rec.Audience = audience
	}

	return rec, nil
}
