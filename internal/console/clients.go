package console

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lukyapp/ory-hydra-console/internal/hydra"
)

const defaultListPageSize = 100

// ListClients relays the upstream listing, narrowed by the optional
// page_size, page_token, client_name, and owner query parameters.
func (h *Handler) ListClients(c echo.Context) error {
	params := hydra.ListClientsParams{
		PageSize:   defaultListPageSize,
		PageToken:  strings.TrimSpace(c.QueryParam("page_token")),
		ClientName: strings.TrimSpace(c.QueryParam("client_name")),
		Owner:      strings.TrimSpace(c.QueryParam("owner")),
	}
	if raw := strings.TrimSpace(c.QueryParam("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return writeError(c, http.StatusBadRequest, "invalid page_size")
		}
		params.PageSize = size
	}

	clients, err := h.hydra.ListClients(c.Request().Context(), params)
	if err != nil {
		return writeUpstreamError(c, "list clients", err)
	}
	if clients == nil {
		clients = []hydra.OAuth2Client{}
	}
	return c.JSON(http.StatusOK, clients)
}

// CreateClient validates and normalizes the submitted record, then
// forwards it. An invalid record never reaches the upstream API.
func (h *Handler) CreateClient(c echo.Context) error {
	var payload clientPayload
	if err := decodeClientPayload(c, &payload); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}

	normalized, fieldErrs := hydra.ValidateAndNormalize(payload.OAuth2Client, string(payload.Metadata), string(payload.JWKS))
	if fieldErrs != nil {
		return writeFieldErrors(c, fieldErrs)
	}

	created, err := h.hydra.CreateClient(c.Request().Context(), normalized)
	if err != nil {
		return writeUpstreamError(c, "create client", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// QuickCreateClient expands an archetype into a record skeleton and
// creates it upstream in one step.
func (h *Handler) QuickCreateClient(c echo.Context) error {
	var input hydra.QuickCreateInput
	if err := decodeJSON(c, &input); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}

	rec, fieldErrs := hydra.BuildQuickClient(input)
	if fieldErrs != nil {
		return writeFieldErrors(c, fieldErrs)
	}
	normalized, fieldErrs := hydra.ValidateAndNormalize(rec, "", "")
	if fieldErrs != nil {
		return writeFieldErrors(c, fieldErrs)
	}

	created, err := h.hydra.CreateClient(c.Request().Context(), normalized)
	if err != nil {
		return writeUpstreamError(c, "create client", err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetClient(c echo.Context) error {
	clientID := strings.TrimSpace(c.Param("clientId"))
	if clientID == "" {
		return writeError(c, http.StatusBadRequest, "client id is required")
	}

	client, err := h.hydra.GetClient(c.Request().Context(), clientID)
	if err != nil {
		return writeUpstreamError(c, "get client", err)
	}
	return c.JSON(http.StatusOK, client)
}

// UpdateClient validates the full replacement record and forwards it.
// The upstream PUT clears any field absent from the submission.
func (h *Handler) UpdateClient(c echo.Context) error {
	clientID := strings.TrimSpace(c.Param("clientId"))
	if clientID == "" {
		return writeError(c, http.StatusBadRequest, "client id is required")
	}

	var payload clientPayload
	if err := decodeClientPayload(c, &payload); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}

	normalized, fieldErrs := hydra.ValidateAndNormalize(payload.OAuth2Client, string(payload.Metadata), string(payload.JWKS))
	if fieldErrs != nil {
		return writeFieldErrors(c, fieldErrs)
	}

	updated, err := h.hydra.UpdateClient(c.Request().Context(), clientID, normalized)
	if err != nil {
		return writeUpstreamError(c, "update client", err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteClient(c echo.Context) error {
	clientID := strings.TrimSpace(c.Param("clientId"))
	if clientID == "" {
		return writeError(c, http.StatusBadRequest, "client id is required")
	}

	if err := h.hydra.DeleteClient(c.Request().Context(), clientID); err != nil {
		return writeUpstreamError(c, "delete client", err)
	}
	return c.NoContent(http.StatusNoContent)
}
