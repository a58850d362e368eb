package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobos/internal/domain"
	"jobos/internal/store"
)

func TestRemoteRequiresAuthBeforeNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	s := store.NewRemote(srv.URL, "")
	err := s.CreateOpportunity(context.Background(), domain.Opportunity{ID: "x", Title: "Y"})
	if !errors.Is(err, store.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("unauthenticated mutation must not reach the server, %d requests", hits)
	}
}

func TestRemoteErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/opportunities/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/v0/opportunities/stale":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	s := store.NewRemote(srv.URL, "token")
	ctx := context.Background()

	if err := s.DeleteOpportunity(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("404 should map to ErrNotFound, got %v", err)
	}
	// Server-side 401 means the token is invalid or expired.
	if err := s.DeleteOpportunity(ctx, "stale"); !errors.Is(err, store.ErrAuthenticationRequired) {
		t.Fatalf("401 should map to ErrAuthenticationRequired, got %v", err)
	}
	err := s.DeleteOpportunity(ctx, "boom")
	var apiErr *store.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("500 should map to APIError, got %v", err)
	}
}

func TestRemoteUnreachable(t *testing.T) {
	s := store.NewRemote("http://127.0.0.1:1", "token")
	_, err := s.Opportunities(context.Background())
	if !errors.Is(err, store.ErrBackendUnavailable) {
		t.Fatalf("transport failure should map to ErrBackendUnavailable, got %v", err)
	}
}

func TestRemoteAuthenticateStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/auth/token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body struct {
			Secret string `json:"secret"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Secret != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "issued-token"})
	}))
	defer srv.Close()

	s := store.NewRemote(srv.URL, "")
	if err := s.Authenticate(context.Background(), "wrong"); !errors.Is(err, store.ErrAuthenticationRequired) {
		t.Fatalf("bad secret should surface as ErrAuthenticationRequired, got %v", err)
	}
	if err := s.Authenticate(context.Background(), "hunter2"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if s.Token != "issued-token" || !s.IsAuthenticated() {
		t.Fatalf("token not stored: %q", s.Token)
	}
}

func TestRemoteListEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []domain.Opportunity{{ID: "opp-1", Title: "Architect", CompanyName: "Siemens"}},
		})
	}))
	defer srv.Close()

	s := store.NewRemote(srv.URL, "token")
	items, err := s.Opportunities(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "opp-1" {
		t.Fatalf("items = %+v", items)
	}
}
