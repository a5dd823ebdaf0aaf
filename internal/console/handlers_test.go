package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lukyapp/ory-hydra-console/internal/hydra"
	"github.com/lukyapp/ory-hydra-console/internal/kratos"
	"github.com/lukyapp/ory-hydra-console/internal/session"
)

type fakeClientGateway struct {
	calls []string

	listClients []hydra.OAuth2Client
	client      *hydra.OAuth2Client
	err         error

	gotListParams hydra.ListClientsParams
	gotRecord     hydra.OAuth2Client
	gotID         string
	gotRevocation hydra.ConsentRevocation
}

func (f *fakeClientGateway) ListClients(_ context.Context, params hydra.ListClientsParams) ([]hydra.OAuth2Client, error) {
	f.calls = append(f.calls, "list")
	f.gotListParams = params
	return f.listClients, f.err
}

func (f *fakeClientGateway) GetClient(_ context.Context, id string) (*hydra.OAuth2Client, error) {
	f.calls = append(f.calls, "get")
	f.gotID = id
	return f.client, f.err
}

func (f *fakeClientGateway) CreateClient(_ context.Context, rec hydra.OAuth2Client) (*hydra.OAuth2Client, error) {
	f.calls = append(f.calls, "create")
	f.gotRecord = rec
	return f.client, f.err
}

func (f *fakeClientGateway) UpdateClient(_ context.Context, id string, rec hydra.OAuth2Client) (*hydra.OAuth2Client, error) {
	f.calls = append(f.calls, "update")
	f.gotID = id
	f.gotRecord = rec
	return f.client, f.err
}

func (f *fakeClientGateway) DeleteClient(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete")
	f.gotID = id
	return f.err
}

func (f *fakeClientGateway) RevokeConsent(_ context.Context, rev hydra.ConsentRevocation) error {
	f.calls = append(f.calls, "revoke")
	f.gotRevocation = rev
	return f.err
}

type fakeIdentityGateway struct {
	calls      int
	identities []kratos.Identity
	err        error
}

func (f *fakeIdentityGateway) ListIdentities(_ context.Context) ([]kratos.Identity, error) {
	f.calls++
	return f.identities, f.err
}

type fakeSessionAuth struct {
	record *session.Record
}

func (f *fakeSessionAuth) SessionFrom(echo.Context) (*session.Record, bool) {
	if f.record == nil {
		return nil, false
	}
	return f.record, true
}

func isAdminEmail(email string) bool {
	return email == "admin@example.com"
}

func newTestServer(clients *fakeClientGateway, identities *fakeIdentityGateway, auth *fakeSessionAuth) *echo.Echo {
	e := echo.New()
	group := e.Group("/api", RequireAdmin(auth, isAdminEmail))
	RegisterRoutes(group, NewHandler(clients, identities))
	return e
}

func adminAuth() *fakeSessionAuth {
	return &fakeSessionAuth{record: &session.Record{Subject: "sub-admin", Email: "admin@example.com"}}
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad error body %q: %v", rec.Body.String(), err)
	}
	return payload["error"]
}

func TestMissingSessionIsUnauthorized(t *testing.T) {
	clients := &fakeClientGateway{}
	identities := &fakeIdentityGateway{}
	e := newTestServer(clients, identities, &fakeSessionAuth{})

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/oauth-clients"},
		{http.MethodPost, "/api/oauth-clients"},
		{http.MethodDelete, "/api/oauth-clients/c1"},
		{http.MethodPost, "/api/consents"},
		{http.MethodGet, "/api/users/search?q=alice"},
	} {
		rec := doRequest(e, tc.method, tc.target, "{}")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d", tc.method, tc.target, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Unauthorized" {
			t.Errorf("%s %s: error = %q", tc.method, tc.target, msg)
		}
	}
	if len(clients.calls) != 0 || identities.calls != 0 {
		t.Errorf("gateways were called: %v, %d", clients.calls, identities.calls)
	}
}

func TestNonAdminSessionIsForbidden(t *testing.T) {
	clients := &fakeClientGateway{}
	auth := &fakeSessionAuth{record: &session.Record{Subject: "sub-1", Email: "user@example.com"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, auth)

	rec := doRequest(e, http.MethodGet, "/api/oauth-clients", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Forbidden" {
		t.Errorf("error = %q", msg)
	}
	if len(clients.calls) != 0 {
		t.Errorf("gateway was called: %v", clients.calls)
	}
}

func TestListClients(t *testing.T) {
	clients := &fakeClientGateway{listClients: []hydra.OAuth2Client{{ClientID: "c1"}}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodGet, "/api/oauth-clients?page_size=5&client_name=App", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if clients.gotListParams.PageSize != 5 || clients.gotListParams.ClientName != "App" {
		t.Errorf("params = %+v", clients.gotListParams)
	}

	var listed []hydra.OAuth2Client
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].ClientID != "c1" {
		t.Errorf("listed = %+v", listed)
	}
}

func TestListClientsEmptyIsJSONArray(t *testing.T) {
	e := newTestServer(&fakeClientGateway{}, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodGet, "/api/oauth-clients", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q", body)
	}
}

func TestListClientsInvalidPageSize(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	for _, raw := range []string{"abc", "0", "-3"} {
		rec := doRequest(e, http.MethodGet, "/api/oauth-clients?page_size="+raw, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("page_size=%q: status = %d", raw, rec.Code)
		}
	}
	if len(clients.calls) != 0 {
		t.Errorf("gateway was called: %v", clients.calls)
	}
}

func TestCreateClient(t *testing.T) {
	clients := &fakeClientGateway{client: &hydra.OAuth2Client{ClientID: "assigned", ClientName: "App"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	body := `{
		"client_name": "App",
		"grant_types": ["authorization_code"],
		"response_types": ["code"],
		"redirect_uris": ["https://app.example.com/cb"],
		"metadata": {"team": "payments"}
	}`
	rec := doRequest(e, http.MethodPost, "/api/oauth-clients", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	metadata, ok := clients.gotRecord.Metadata.(map[string]any)
	if !ok || metadata["team"] != "payments" {
		t.Errorf("metadata = %+v", clients.gotRecord.Metadata)
	}

	var created hydra.OAuth2Client
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ClientID != "assigned" {
		t.Errorf("created = %+v", created)
	}
}

func TestCreateClientValidationFailureSkipsUpstream(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodPost, "/api/oauth-clients", `{"client_name":""}`)
	if rec.Code != 422 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Errors["client_name"] == "" {
		t.Errorf("errors = %+v", payload.Errors)
	}
	if len(clients.calls) != 0 {
		t.Errorf("gateway was called: %v", clients.calls)
	}
}

func TestClientPayloadToleratesUnmirroredFields(t *testing.T) {
	clients := &fakeClientGateway{client: &hydra.OAuth2Client{ClientID: "c1"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	// A record fetched from upstream can carry fields the console does
	// not model; putting it back must still work.
	body := `{
		"client_name": "App",
		"grant_types": ["client_credentials"],
		"token_endpoint_auth_method": "client_secret_basic",
		"authorization_code_grant_access_token_lifespan": "1h"
	}`
	rec := doRequest(e, http.MethodPut, "/api/oauth-clients/c1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if clients.gotID != "c1" || clients.gotRecord.ClientName != "App" {
		t.Errorf("id = %q, record = %+v", clients.gotID, clients.gotRecord)
	}
}

func TestQuickCreateRejectsUnknownFields(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	body := `{"app_type":"spa","client_name":"App","redirect_uris":["https://a.com/cb"],"nonsense_field":true}`
	rec := doRequest(e, http.MethodPost, "/api/oauth-clients/quick", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if len(clients.calls) != 0 {
		t.Errorf("gateway was called: %v", clients.calls)
	}
}

func TestQuickCreateClient(t *testing.T) {
	clients := &fakeClientGateway{client: &hydra.OAuth2Client{ClientID: "assigned"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	body := `{"app_type":"spa","client_name":"My SPA","redirect_uris":["https://spa.example.com/cb"]}`
	rec := doRequest(e, http.MethodPost, "/api/oauth-clients/quick", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if clients.gotRecord.TokenEndpointAuthMethod != "none" {
		t.Errorf("record = %+v", clients.gotRecord)
	}
	if len(clients.gotRecord.GrantTypes) != 1 || clients.gotRecord.GrantTypes[0] != "authorization_code" {
		t.Errorf("grant types = %v", clients.gotRecord.GrantTypes)
	}
}

func TestGetClient(t *testing.T) {
	clients := &fakeClientGateway{client: &hydra.OAuth2Client{ClientID: "c1"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodGet, "/api/oauth-clients/c1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if clients.gotID != "c1" {
		t.Errorf("id = %q", clients.gotID)
	}
}

func TestUpdateClient(t *testing.T) {
	clients := &fakeClientGateway{client: &hydra.OAuth2Client{ClientID: "c1", ClientName: "Renamed"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	body := `{
		"client_name": "Renamed",
		"grant_types": ["client_credentials"],
		"token_endpoint_auth_method": "client_secret_basic"
	}`
	rec := doRequest(e, http.MethodPut, "/api/oauth-clients/c1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if clients.gotID != "c1" || clients.gotRecord.ClientName != "Renamed" {
		t.Errorf("id = %q, record = %+v", clients.gotID, clients.gotRecord)
	}
}

func TestDeleteClient(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodDelete, "/api/oauth-clients/c1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if clients.gotID != "c1" {
		t.Errorf("id = %q", clients.gotID)
	}
}

func TestUpstreamFailureIsInternalError(t *testing.T) {
	clients := &fakeClientGateway{err: &hydra.UpstreamError{Op: "list clients", Status: 502, Body: "down"}}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodGet, "/api/oauth-clients", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "failed to list clients: 502 down" {
		t.Errorf("error = %q", msg)
	}
	if len(clients.calls) != 1 {
		t.Errorf("calls = %v", clients.calls)
	}
}

func TestRevokeConsentRequiresSubject(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodPost, "/api/consents", `{"client":"c1","all":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Subject is required." {
		t.Errorf("error = %q", msg)
	}
	if len(clients.calls) != 0 {
		t.Errorf("gateway was called: %v", clients.calls)
	}
}

func TestRevokeConsentRequiresClientOrAll(t *testing.T) {
	e := newTestServer(&fakeClientGateway{}, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodPost, "/api/consents", `{"subject":"sub-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Specify a client or set all=true." {
		t.Errorf("error = %q", msg)
	}
}

func TestRevokeConsentClientWinsOverAll(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodPost, "/api/consents", `{"subject":"sub-1","client":"c1","all":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	want := hydra.ConsentRevocation{Subject: "sub-1", Client: "c1", All: false}
	if clients.gotRevocation != want {
		t.Errorf("revocation = %+v", clients.gotRevocation)
	}

	var resp revokeConsentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Subject != "sub-1" || resp.Client == nil || *resp.Client != "c1" || resp.All {
		t.Errorf("response = %+v", resp)
	}
}

func TestRevokeConsentAll(t *testing.T) {
	clients := &fakeClientGateway{}
	e := newTestServer(clients, &fakeIdentityGateway{}, adminAuth())

	rec := doRequest(e, http.MethodPost, "/api/consents", `{"subject":"sub-1","all":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := hydra.ConsentRevocation{Subject: "sub-1", All: true}
	if clients.gotRevocation != want {
		t.Errorf("revocation = %+v", clients.gotRevocation)
	}

	var resp revokeConsentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Client != nil || !resp.All {
		t.Errorf("response = %+v", resp)
	}
}

func TestSearchUsersShortQuerySkipsGateway(t *testing.T) {
	identities := &fakeIdentityGateway{}
	e := newTestServer(&fakeClientGateway{}, identities, adminAuth())

	for _, q := range []string{"", "a", "  a  "} {
		rec := doRequest(e, http.MethodGet, "/api/users/search?q="+strings.TrimSpace(q), "")
		if rec.Code != http.StatusOK {
			t.Errorf("q=%q: status = %d", q, rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("q=%q: body = %q", q, body)
		}
	}
	if identities.calls != 0 {
		t.Errorf("gateway was called %d times", identities.calls)
	}
}

func TestSearchUsers(t *testing.T) {
	identities := &fakeIdentityGateway{identities: []kratos.Identity{
		{ID: "1", Traits: map[string]any{"email": "alice@x.com"}},
		{ID: "2", Traits: map[string]any{"emails": []any{"bob@x.com"}}},
	}}
	e := newTestServer(&fakeClientGateway{}, identities, adminAuth())

	rec := doRequest(e, http.MethodGet, "/api/users/search?q=AL", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if identities.calls != 1 {
		t.Errorf("gateway calls = %d", identities.calls)
	}

	var suggestions []kratos.Suggestion
	if err := json.Unmarshal(rec.Body.Bytes(), &suggestions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Email != "alice@x.com" {
		t.Errorf("suggestions = %+v", suggestions)
	}
}
