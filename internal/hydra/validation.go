package hydra

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FieldErrors maps a client-record field name to a human-readable
// validation message.
type FieldErrors map[string]string

// ValidateAndNormalize checks a user-edited client record against the
// invariants the console enforces before anything is forwarded upstream,
// and returns either a cleaned record ready for transmission or the
// per-field errors, never both.
//
// metadataJSON and jwksJSON are the raw text blobs as edited; they are
// parsed into the record only when the whole submission is valid.
func ValidateAndNormalize(rec OAuth2Client, metadataJSON string, jwksJSON string) (OAuth2Client, FieldErrors) {
	errs := FieldErrors{}

	// Redirect URIs are optional only for a pure machine-to-machine
	// client: exactly one grant type and it is client_credentials.
	machineOnly := len(rec.GrantTypes) == 1 && rec.GrantTypes[0] == "client_credentials"
	requireRedirectURIs := !machineOnly &&
		(contains(rec.GrantTypes, "authorization_code") ||
			contains(rec.GrantTypes, "implicit") ||
			contains(rec.ResponseTypes, "code") ||
			contains(rec.ResponseTypes, "token") ||
			contains(rec.ResponseTypes, "id_token"))

	if strings.TrimSpace(rec.ClientName) == "" {
		errs["client_name"] = "Client name is required."
	}
	if len(rec.GrantTypes) == 0 {
		errs["grant_types"] = "Select at least one grant type."
	}
	if !machineOnly && len(rec.ResponseTypes) == 0 {
		errs["response_types"] = "Select at least one response type."
	}

	redirectURIs := validateURLList(errs, rec.RedirectURIs, "Redirect URI", "redirect_uris", requireRedirectURIs)
	postLogoutURIs := validateURLList(errs, rec.PostLogoutRedirectURIs, "Post Logout Redirect URI", "post_logout_redirect_uris", false)
	requestURIs := validateURLList(errs, rec.RequestURIs, "Request URI", "request_uris", false)
	corsOrigins := validateURLList(errs, rec.AllowedCORSOrigins, "Allowed CORS Origin", "allowed_cors_origins", false)

	validateSingleURL(errs, rec.ClientURI, "Client URI", "client_uri")
	validateSingleURL(errs, rec.LogoURI, "Logo URI", "logo_uri")
	validateSingleURL(errs, rec.TOSURI, "Terms of Service URI", "tos_uri")
	validateSingleURL(errs, rec.PolicyURI, "Privacy Policy URI", "policy_uri")
	validateSingleURL(errs, rec.JWKSURI, "JWKS URI", "jwks_uri")
	validateSingleURL(errs, rec.SectorIdentifierURI, "Sector Identifier URI", "sector_identifier_uri")
	validateSingleURL(errs, rec.BackchannelLogoutCallback, "Backchannel Logout Callback", "backchannel_logout_callback")
	validateSingleURL(errs, rec.FrontchannelLogoutCallback, "Frontchannel Logout Callback", "frontchannel_logout_callback")

	// Well-formedness is the only requirement here; the admin API owns
	// the shape of both documents.
	var metadata any
	if strings.TrimSpace(metadataJSON) != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			errs["metadata"] = "Metadata must be valid JSON."
		}
	}
	var jwks any
	if strings.TrimSpace(jwksJSON) != "" {
		if err := json.Unmarshal([]byte(jwksJSON), &jwks); err != nil {
			errs["jwks"] = "JWKS must be valid JSON."
		}
	}

	if len(errs) > 0 {
		return OAuth2Client{}, errs
	}

	rec.ClientID = strings.TrimSpace(rec.ClientID)
	rec.ClientSecret = strings.TrimSpace(rec.ClientSecret)
	rec.Owner = strings.TrimSpace(rec.Owner)
	rec.RedirectURIs = redirectURIs
	rec.PostLogoutRedirectURIs = postLogoutURIs
	rec.RequestURIs = requestURIs
	rec.AllowedCORSOrigins = corsOrigins
	rec.Contacts = dropBlanks(rec.Contacts)
	rec.Audience = dropBlanks(rec.Audience)
	rec.Metadata = metadata
	rec.JWKS = jwks
	return rec, nil
}

// validateURL rejects anything that does not parse as an absolute
// http(s) URL. Blank values are fine; required-ness is the caller's
// concern.
func validateURL(value string, label string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	parsed, err := url.Parse(value)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Sprintf("%s must be a valid URL.", label)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Sprintf("%s must start with http:// or https://.", label)
	}
	return ""
}

// validateURLList cleans a list field and records at most one error for
// it: either the required-but-empty error or the first invalid entry.
func validateURLList(errs FieldErrors, values []string, label string, key string, requireAtLeastOne bool) []string {
	cleaned := dropBlanks(values)
	if requireAtLeastOne && len(cleaned) == 0 {
		errs[key] = fmt.Sprintf("%s requires at least one URL.", label)
		return cleaned
	}
	for i, value := range cleaned {
		if msg := validateURL(value, fmt.Sprintf("%s %d", label, i+1)); msg != "" {
			errs[key] = msg
			return cleaned
		}
	}
	return cleaned
}

func validateSingleURL(errs FieldErrors, value string, label string, key string) {
	if msg := validateURL(value, label); msg != "" {
		errs[key] = msg
	}
}

func dropBlanks(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
