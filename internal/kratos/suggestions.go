package kratos

import "strings"

// Suggestion is the {id, email} projection served to the search UI.
// Email may be empty when no address could be resolved; such entries
// still count toward the result cap.
type Suggestion struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// EmailOf resolves an identity's display email. Preference order:
// traits.email string, first string in a traits.emails array, first
// recovery address with a value, first verifiable address with a value.
func EmailOf(identity Identity) string {
	if email, ok := identity.Traits["email"].(string); ok && email != "" {
		return email
	}
	if raw, ok := identity.Traits["emails"].([]any); ok {
		for _, entry := range raw {
			if email, ok := entry.(string); ok && email != "" {
				return email
			}
		}
	}
	for _, addr := range identity.RecoveryAddresses {
		if addr.Value != "" {
			return addr.Value
		}
	}
	for _, addr := range identity.VerifiableAddresses {
		if addr.Value != "" {
			return addr.Value
		}
	}
	return ""
}

// SearchSuggestions filters identities by a case-insensitive substring
// match against the resolved email or the identity id, capped at limit.
// The query is expected to be trimmed and lowercased by the caller.
func SearchSuggestions(identities []Identity, query string, limit int) []Suggestion {
	suggestions := make([]Suggestion, 0, limit)
	for _, identity := range identities {
		if len(suggestions) == limit {
			break
		}
		suggestion := Suggestion{ID: identity.ID, Email: EmailOf(identity)}
		if strings.Contains(strings.ToLower(suggestion.Email), query) ||
			strings.Contains(strings.ToLower(suggestion.ID), query) {
			suggestions = append(suggestions, suggestion)
		}
	}
	return suggestions
}
