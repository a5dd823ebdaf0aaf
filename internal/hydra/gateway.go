package hydra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lukyapp/ory-hydra-console/internal/urlx"
)

const (
	clientsPath = "/admin/clients"
	consentPath = "/admin/oauth2/auth/sessions/consent"
)

// UpstreamError carries a non-2xx answer from the admin API. Nothing is
// retried; the operator retries by hand.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to %s: %d %s", e.Op, e.Status, e.Body)
}

// Client is a stateless gateway to the authorization server's admin API.
// Every operation is a single upstream HTTP call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a gateway for the given admin-API origin. A nil
// httpClient falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListClientsParams narrows a client listing. Zero values are omitted
// from the upstream query.
type ListClientsParams struct {
	PageSize   int
	PageToken  string
	ClientName string
	Owner      string
}

// ConsentRevocation describes one revocation request. Client scopes the
// revocation to a single relying party; All revokes everything the
// subject has consented to and is only sent upstream when no client is
// given.
type ConsentRevocation struct {
	Subject string
	Client  string
	All     bool
}

func (c *Client) ListClients(ctx context.Context, params ListClientsParams) ([]OAuth2Client, error) {
	query := url.Values{}
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.PageToken != "" {
		query.Set("page_token", params.PageToken)
	}
	if params.ClientName != "" {
		query.Set("client_name", params.ClientName)
	}
	if params.Owner != "" {
		query.Set("owner", params.Owner)
	}

	var clients []OAuth2Client
	if err := c.do(ctx, "list clients", http.MethodGet, clientsPath, query, nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (c *Client) GetClient(ctx context.Context, id string) (*OAuth2Client, error) {
	var client OAuth2Client
	if err := c.do(ctx, "get client", http.MethodGet, clientsPath+"/"+url.PathEscape(id), nil, nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *Client) CreateClient(ctx context.Context, rec OAuth2Client) (*OAuth2Client, error) {
	var created OAuth2Client
	if err := c.do(ctx, "create client", http.MethodPost, clientsPath, nil, &rec, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateClient replaces the stored record. The upstream PUT has
// full-replace semantics: fields absent from rec come back cleared.
func (c *Client) UpdateClient(ctx context.Context, id string, rec OAuth2Client) (*OAuth2Client, error) {
	var updated OAuth2Client
	if err := c.do(ctx, "update client", http.MethodPut, clientsPath+"/"+url.PathEscape(id), nil, &rec, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, "delete client", http.MethodDelete, clientsPath+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) RevokeConsent(ctx context.Context, rev ConsentRevocation) error {
	query := url.Values{}
	query.Set("subject", rev.Subject)
	if rev.Client != "" {
		query.Set("client", rev.Client)
	} else if rev.All {
		query.Set("all", "true")
	}
	return c.do(ctx, "revoke consent", http.MethodDelete, consentPath, query, nil, nil)
}

func (c *Client) do(ctx context.Context, op string, method string, path string, query url.Values, in any, out any) error {
	rawURL := urlx.Join(c.baseURL, path)
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to %s: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Op: op, Status: resp.StatusCode, Body: string(text)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}
