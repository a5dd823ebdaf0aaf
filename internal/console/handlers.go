package console

import (
	"context"
	"encoding/json"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/lukyapp/ory-hydra-console/internal/hydra"
	"github.com/lukyapp/ory-hydra-console/internal/kratos"
)

// ClientGateway is the slice of the authorization-server admin API the
// handlers call. Tests fake it.
type ClientGateway interface {
	ListClients(ctx context.Context, params hydra.ListClientsParams) ([]hydra.OAuth2Client, error)
	GetClient(ctx context.Context, id string) (*hydra.OAuth2Client, error)
	CreateClient(ctx context.Context, rec hydra.OAuth2Client) (*hydra.OAuth2Client, error)
	UpdateClient(ctx context.Context, id string, rec hydra.OAuth2Client) (*hydra.OAuth2Client, error)
	DeleteClient(ctx context.Context, id string) error
	RevokeConsent(ctx context.Context, rev hydra.ConsentRevocation) error
}

// IdentityGateway is the identity-provider surface the search handler
// calls.
type IdentityGateway interface {
	ListIdentities(ctx context.Context) ([]kratos.Identity, error)
}

// Handler holds the gateways; it keeps no per-request state.
type Handler struct {
	hydra  ClientGateway
	kratos IdentityGateway
}

func NewHandler(clientGateway ClientGateway, identityGateway IdentityGateway) *Handler {
	return &Handler{hydra: clientGateway, kratos: identityGateway}
}

// RegisterRoutes mounts the API on an already admin-gated group.
func RegisterRoutes(group *echo.Group, handler *Handler) {
	group.GET("/oauth-clients", handler.ListClients)
	group.POST("/oauth-clients", handler.CreateClient)
	group.POST("/oauth-clients/quick", handler.QuickCreateClient)
	group.GET("/oauth-clients/:clientId", handler.GetClient)
	group.PUT("/oauth-clients/:clientId", handler.UpdateClient)
	group.DELETE("/oauth-clients/:clientId", handler.DeleteClient)
	group.POST("/consents", handler.RevokeConsent)
	group.GET("/users/search", handler.SearchUsers)
}

// clientPayload is the edited record plus the two raw JSON blobs. The
// outer fields shadow the embedded record's metadata/jwks so the text
// reaches the validator unparsed.
type clientPayload struct {
	hydra.OAuth2Client
	Metadata json.RawMessage `json:"metadata,omitempty"`
	JWKS     json.RawMessage `json:"jwks,omitempty"`
}

// decodeJSON guards the closed request DTOs; a misspelled field is a
// client bug worth surfacing.
func decodeJSON(c echo.Context, out any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// decodeClientPayload tolerates fields the local record does not
// mirror. The upstream API grows record fields over time, and a record
// fetched from it must survive a put-back unedited.
func decodeClientPayload(c echo.Context, out *clientPayload) error {
	return json.NewDecoder(c.Request().Body).Decode(out)
}

func writeFieldErrors(c echo.Context, errs hydra.FieldErrors) error {
	return c.JSON(422, map[string]any{"errors": errs})
}

func writeUpstreamError(c echo.Context, op string, err error) error {
	log.Err(err).
		Str("operation", op).
		Str("operator", OperatorFromContext(c)).
		Str("request_id", requestIDFromContext(c)).
		Msg("upstream call failed")
	return writeError(c, 500, err.Error())
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
