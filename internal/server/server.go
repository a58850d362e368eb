// Package server exposes the sync API: authenticated per-kind CRUD over any
// storage backend. Pipeline rules live in the client engine; the server only
// persists records, stamps timestamps, and guards writes with bearer auth.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"jobos/internal/domain"
	"jobos/internal/engine"
	"jobos/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store    store.Gateway
	BasePath string
	Auth     AuthConfig
	Now      func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"record does not exist"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the sync API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Jobos Sync API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerAuthToken(group, cfg)
	registerCompanies(group, cfg)
	registerOpportunities(group, cfg)
	registerContacts(group, cfg)
	registerTasks(group, cfg)
	registerProfile(group, cfg)
	registerActivity(group, cfg)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, store.ErrAuthenticationRequired) {
		return newAPIError(http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	}
	var verr *engine.ValidationError
	if errors.As(err, &verr) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	log.Printf("sync: request failed: %v", err)
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuthToken(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "auth-token",
		Method:      http.MethodPost,
		Path:        "/auth/token",
		Summary:     "Exchange the shared secret for a bearer token",
	}, func(ctx context.Context, input *struct {
		Body TokenRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		if !cfg.Auth.Enabled() {
			return nil, newAPIError(http.StatusBadRequest, "auth_disabled", "server runs without authentication", nil)
		}
		if input.Body.Secret != cfg.Auth.Secret {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		}
		token, err := mintToken(cfg.Auth, cfg.now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token}}, nil
	})
}

func registerCompanies(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-companies",
		Method:      http.MethodGet,
		Path:        "/companies",
		Summary:     "List companies",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CompanyList `json:"body"`
	}, error) {
		items, err := cfg.Store.Companies(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CompanyList `json:"body"`
		}{Body: CompanyList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-company",
		Method:        http.MethodPost,
		Path:          "/companies",
		Summary:       "Create company",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body domain.Company `json:"body"`
	}) (*struct {
		Body domain.Company `json:"body"`
	}, error) {
		c := input.Body
		if c.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt == "" {
			c.CreatedAt = cfg.now().UTC().Format(time.RFC3339)
		}
		if err := cfg.Store.CreateCompany(ctx, c); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Company `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-company",
		Method:      http.MethodPatch,
		Path:        "/companies/{id}",
		Summary:     "Update company",
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body store.CompanyPatch `json:"body"`
	}) (*struct{}, error) {
		if err := cfg.Store.UpdateCompany(ctx, input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerOpportunities(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-opportunities",
		Method:      http.MethodGet,
		Path:        "/opportunities",
		Summary:     "List opportunities",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body OpportunityList `json:"body"`
	}, error) {
		items, err := cfg.Store.Opportunities(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OpportunityList `json:"body"`
		}{Body: OpportunityList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-opportunity",
		Method:        http.MethodPost,
		Path:          "/opportunities",
		Summary:       "Create opportunity",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body domain.Opportunity `json:"body"`
	}) (*struct {
		Body domain.Opportunity `json:"body"`
	}, error) {
		o := input.Body
		if o.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if o.CompanyName == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "company_name is required", nil)
		}
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if o.UpdatedAt == "" {
			o.UpdatedAt = cfg.now().UTC().Format(time.RFC3339)
		}
		if err := cfg.Store.CreateOpportunity(ctx, o); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Opportunity `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-opportunity",
		Method:      http.MethodPatch,
		Path:        "/opportunities/{id}",
		Summary:     "Update opportunity",
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body store.OpportunityPatch `json:"body"`
	}) (*struct{}, error) {
		if err := cfg.Store.UpdateOpportunity(ctx, input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-opportunity",
		Method:        http.MethodDelete,
		Path:          "/opportunities/{id}",
		Summary:       "Delete opportunity",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := cfg.Store.DeleteOpportunity(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerContacts(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        "/contacts",
		Summary:     "List contacts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ContactList `json:"body"`
	}, error) {
		items, err := cfg.Store.Contacts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContactList `json:"body"`
		}{Body: ContactList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create contact",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body domain.Contact `json:"body"`
	}) (*struct {
		Body domain.Contact `json:"body"`
	}, error) {
		c := input.Body
		if c.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.UpdatedAt == "" {
			c.UpdatedAt = cfg.now().UTC().Format(time.RFC3339)
		}
		if err := cfg.Store.CreateContact(ctx, c); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contact `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-contact",
		Method:      http.MethodPatch,
		Path:        "/contacts/{id}",
		Summary:     "Update contact",
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body store.ContactPatch `json:"body"`
	}) (*struct{}, error) {
		if err := cfg.Store.UpdateContact(ctx, input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-contact",
		Method:        http.MethodDelete,
		Path:          "/contacts/{id}",
		Summary:       "Delete contact",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := cfg.Store.DeleteContact(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TaskList `json:"body"`
	}, error) {
		items, err := cfg.Store.Tasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskList `json:"body"`
		}{Body: TaskList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body domain.Task `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t := input.Body
		if t.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if err := cfg.Store.CreateTask(ctx, t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body store.TaskPatch `json:"body"`
	}) (*struct{}, error) {
		if err := cfg.Store.UpdateTask(ctx, input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := cfg.Store.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerProfile(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profile",
		Summary:     "Read the singleton profile",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		p, err := cfg.Store.Profile(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-profile",
		Method:      http.MethodPut,
		Path:        "/profile",
		Summary:     "Save the singleton profile",
	}, func(ctx context.Context, input *struct {
		Body domain.Profile `json:"body"`
	}) (*struct{}, error) {
		if input.Body.FullName == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "full_name is required", nil)
		}
		if err := cfg.Store.SaveProfile(ctx, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActivity(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "List activity newest-first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ActivityList `json:"body"`
	}, error) {
		items, err := cfg.Store.ReadActivity(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityList `json:"body"`
		}{Body: ActivityList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-activity",
		Method:        http.MethodPost,
		Path:          "/activity",
		Summary:       "Append an activity entry",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body AppendActivityRequest `json:"body"`
	}) (*struct{}, error) {
		if input.Body.ActionType == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "action_type is required", nil)
		}
		if err := cfg.Store.AppendActivity(ctx, input.Body.ActionType, input.Body.Details); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
