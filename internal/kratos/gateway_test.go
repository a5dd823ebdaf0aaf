package kratos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListIdentities(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[
			{"id":"1","traits":{"email":"alice@x.com"}},
			{"id":"2","traits":{},"recovery_addresses":[{"value":"bob@x.com"}]}
		]`))
	}))
	defer server.Close()

	gateway := NewClient(server.URL, nil)
	identities, err := gateway.ListIdentities(context.Background())
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if gotPath != "/admin/identities" {
		t.Errorf("path = %q", gotPath)
	}
	if len(identities) != 2 {
		t.Fatalf("identities = %+v", identities)
	}
	if EmailOf(identities[0]) != "alice@x.com" || EmailOf(identities[1]) != "bob@x.com" {
		t.Errorf("resolved emails = %q, %q", EmailOf(identities[0]), EmailOf(identities[1]))
	}
}

func TestListIdentitiesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	gateway := NewClient(server.URL, nil)
	_, err := gateway.ListIdentities(context.Background())
	if err == nil {
		t.Fatal("expected upstream error")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.Status != http.StatusBadGateway || upstream.Body != "upstream down" {
		t.Errorf("upstream = %+v", upstream)
	}
}
