package console

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/lukyapp/ory-hydra-console/internal/hydra"
)

type revokeConsentRequest struct {
	Subject string `json:"subject"`
	Client  string `json:"client"`
	All     bool   `json:"all"`
}

type revokeConsentResponse struct {
	Success bool    `json:"success"`
	Subject string  `json:"subject"`
	Client  *string `json:"client"`
	All     bool    `json:"all"`
}

// RevokeConsent drops a subject's stored consents, either for one
// client or for all of them. A client reference always narrows the
// request: all is forced false when both are given.
func (h *Handler) RevokeConsent(c echo.Context) error {
	var req revokeConsentRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return writeError(c, http.StatusBadRequest, "Subject is required.")
	}

	client := strings.TrimSpace(req.Client)
	if client == "" && !req.All {
		return writeError(c, http.StatusBadRequest, "Specify a client or set all=true.")
	}
	revokeAll := req.All && client == ""

	err := h.hydra.RevokeConsent(c.Request().Context(), hydra.ConsentRevocation{
		Subject: subject,
		Client:  client,
		All:     revokeAll,
	})
	if err != nil {
		return writeUpstreamError(c, "revoke consent", err)
	}

	log.Info().
		Str("subject", subject).
		Str("client", client).
		Bool("all", revokeAll).
		Str("operator", OperatorFromContext(c)).
		Msg("consent revoked")

	resp := revokeConsentResponse{Success: true, Subject: subject, All: revokeAll}
	if client != "" {
		resp.Client = &client
	}
	return c.JSON(http.StatusOK, resp)
}
