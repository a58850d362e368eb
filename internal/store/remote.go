package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobos/internal/domain"
	"jobos/internal/ledger"
)

// Remote is the hosted backend: a JSON client against the sync server's
// per-kind CRUD API. Every mutating call requires a bearer token; without one
// the call fails with ErrAuthenticationRequired before touching the network.
// Ordering of activity entries is server-assigned.
type Remote struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewRemote creates a client with sane defaults.
func NewRemote(baseURL, token string) *Remote {
	return &Remote{
		BaseURL: baseURL,
		Token:   token,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses that do not map to a sentinel error.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (s *Remote) IsRemote() bool { return true }

func (s *Remote) Close() error { return nil }

// IsAuthenticated reports whether the client carries a principal credential.
func (s *Remote) IsAuthenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

func (s *Remote) requireAuth() error {
	if !s.IsAuthenticated() {
		return ErrAuthenticationRequired
	}
	return nil
}

func (s *Remote) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: s.Timeout}
	}
	u := strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuthenticationRequired
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func kindPath(kind, id string) string {
	if id == "" {
		return "v0/" + kind
	}
	return "v0/" + kind + "/" + url.PathEscape(id)
}

func (s *Remote) Companies(ctx context.Context) ([]domain.Company, error) {
	var resp struct {
		Items []domain.Company `json:"items"`
	}
	err := s.do(ctx, http.MethodGet, kindPath("companies", ""), nil, &resp)
	return resp.Items, err
}

func (s *Remote) CreateCompany(ctx context.Context, c domain.Company) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, kindPath("companies", ""), c, nil)
}

func (s *Remote) UpdateCompany(ctx context.Context, id string, p CompanyPatch) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPatch, kindPath("companies", id), p, nil)
}

func (s *Remote) Opportunities(ctx context.Context) ([]domain.Opportunity, error) {
	var resp struct {
		Items []domain.Opportunity `json:"items"`
	}
	err := s.do(ctx, http.MethodGet, kindPath("opportunities", ""), nil, &resp)
	return resp.Items, err
}

func (s *Remote) CreateOpportunity(ctx context.Context, o domain.Opportunity) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, kindPath("opportunities", ""), o, nil)
}

func (s *Remote) UpdateOpportunity(ctx context.Context, id string, p OpportunityPatch) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPatch, kindPath("opportunities", id), p, nil)
}

func (s *Remote) DeleteOpportunity(ctx context.Context, id string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodDelete, kindPath("opportunities", id), nil, nil)
}

func (s *Remote) Contacts(ctx context.Context) ([]domain.Contact, error) {
	var resp struct {
		Items []domain.Contact `json:"items"`
	}
	err := s.do(ctx, http.MethodGet, kindPath("contacts", ""), nil, &resp)
	return resp.Items, err
}

func (s *Remote) CreateContact(ctx context.Context, c domain.Contact) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, kindPath("contacts", ""), c, nil)
}

func (s *Remote) UpdateContact(ctx context.Context, id string, p ContactPatch) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPatch, kindPath("contacts", id), p, nil)
}

func (s *Remote) DeleteContact(ctx context.Context, id string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodDelete, kindPath("contacts", id), nil, nil)
}

func (s *Remote) Tasks(ctx context.Context) ([]domain.Task, error) {
	var resp struct {
		Items []domain.Task `json:"items"`
	}
	err := s.do(ctx, http.MethodGet, kindPath("tasks", ""), nil, &resp)
	return resp.Items, err
}

func (s *Remote) CreateTask(ctx context.Context, t domain.Task) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, kindPath("tasks", ""), t, nil)
}

func (s *Remote) UpdateTask(ctx context.Context, id string, p TaskPatch) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPatch, kindPath("tasks", id), p, nil)
}

func (s *Remote) DeleteTask(ctx context.Context, id string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodDelete, kindPath("tasks", id), nil, nil)
}

func (s *Remote) Profile(ctx context.Context) (domain.Profile, error) {
	var p domain.Profile
	err := s.do(ctx, http.MethodGet, "v0/profile", nil, &p)
	return p, err
}

func (s *Remote) SaveProfile(ctx context.Context, p domain.Profile) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, "v0/profile", p, nil)
}

func (s *Remote) AppendActivity(ctx context.Context, actionType, details string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	body := map[string]any{
		"action_type": actionType,
		"details":     details,
	}
	return s.do(ctx, http.MethodPost, "v0/activity", body, nil)
}

func (s *Remote) ReadActivity(ctx context.Context) ([]ledger.Entry, error) {
	var resp struct {
		Items []ledger.Entry `json:"items"`
	}
	err := s.do(ctx, http.MethodGet, "v0/activity", nil, &resp)
	return resp.Items, err
}

// Health pings the server without credentials.
func (s *Remote) Health(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "v0/health", nil, nil)
}

// Authenticate exchanges the shared secret for a bearer token and stores it
// on the client.
func (s *Remote) Authenticate(ctx context.Context, secret string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := s.do(ctx, http.MethodPost, "v0/auth/token", map[string]any{"secret": secret}, &resp); err != nil {
		return err
	}
	s.Token = resp.Token
	return nil
}
