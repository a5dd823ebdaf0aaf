package console

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/lukyapp/ory-hydra-console/internal/kratos"
)

const (
	minSearchQueryLen = 2
	maxSearchResults  = 10
)

// SearchUsers suggests identities matching the query by email or id.
// Queries shorter than two characters answer an empty list without
// touching the identity provider.
func (h *Handler) SearchUsers(c echo.Context) error {
	query := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))
	if utf8.RuneCountInString(query) < minSearchQueryLen {
		return c.JSON(http.StatusOK, []kratos.Suggestion{})
	}

	identities, err := h.kratos.ListIdentities(c.Request().Context())
	if err != nil {
		return writeUpstreamError(c, "search users", err)
	}
	return c.JSON(http.StatusOK, kratos.SearchSuggestions(identities, query, maxSearchResults))
}
