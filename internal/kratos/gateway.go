// Package kratos talks to the identity provider's admin API and derives
// the read-only identity suggestions the console searches over.
package kratos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lukyapp/ory-hydra-console/internal/urlx"
)

const identitiesPath = "/admin/identities"

// UpstreamError carries a non-2xx answer from the identity admin API.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to %s: %d %s", e.Op, e.Status, e.Body)
}

// Address is a recovery or verifiable address attached to an identity.
type Address struct {
	Value string `json:"value"`
}

// Identity is the slice of the upstream identity record the console
// cares about. Traits are schema-less upstream, so they stay untyped.
type Identity struct {
	ID                  string         `json:"id"`
	Traits              map[string]any `json:"traits"`
	RecoveryAddresses   []Address      `json:"recovery_addresses"`
	VerifiableAddresses []Address      `json:"verifiable_addresses"`
}

// Client is a stateless gateway to the identity provider's admin API.
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

// ListIdentities fetches the upstream default page of identities. No
// pagination parameters are threaded through; callers needing more than
// the default page must be aware results may be incomplete.
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlx.Join(c.baseURL, identitiesPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Op: "list identities", Status: resp.StatusCode, Body: string(text)}
	}

	var identities []Identity
	if err := json.NewDecoder(resp.Body).Decode(&identities); err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}
