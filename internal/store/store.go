// Package store provides the persistence gateway: one uniform CRUD and
// activity-append contract with interchangeable backends. Exactly one backend
// is active per session; the pipeline engine depends only on the Gateway
// interface and never on backend details.
package store

import (
	"context"
	"errors"

	"jobos/internal/domain"
	"jobos/internal/ledger"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuthenticationRequired is returned when a mutating call reaches the
	// remote backend without an authenticated principal. The original system
	// degraded this to a silent no-op; here it is surfaced to the caller.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrBackendUnavailable is returned when the remote backend cannot be
	// reached. Calls are not retried automatically.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Gateway is the backend-agnostic persistence contract. Partial updates
// travel as patch structs; nil fields are left untouched. ReadActivity
// returns entries newest-first.
type Gateway interface {
	Companies(ctx context.Context) ([]domain.Company, error)
	CreateCompany(ctx context.Context, c domain.Company) error
	UpdateCompany(ctx context.Context, id string, p CompanyPatch) error

	Opportunities(ctx context.Context) ([]domain.Opportunity, error)
	CreateOpportunity(ctx context.Context, o domain.Opportunity) error
	UpdateOpportunity(ctx context.Context, id string, p OpportunityPatch) error
	DeleteOpportunity(ctx context.Context, id string) error

	Contacts(ctx context.Context) ([]domain.Contact, error)
	CreateContact(ctx context.Context, c domain.Contact) error
	UpdateContact(ctx context.Context, id string, p ContactPatch) error
	DeleteContact(ctx context.Context, id string) error

	Tasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, id string, p TaskPatch) error
	DeleteTask(ctx context.Context, id string) error

	Profile(ctx context.Context) (domain.Profile, error)
	SaveProfile(ctx context.Context, p domain.Profile) error

	AppendActivity(ctx context.Context, actionType, details string) error
	ReadActivity(ctx context.Context) ([]ledger.Entry, error)

	IsRemote() bool
	Close() error
}

// CompanyPatch carries partial company updates.
type CompanyPatch struct {
	Name     *string `json:"name,omitempty"`
	Website  *string `json:"website,omitempty"`
	Location *string `json:"location,omitempty"`
	Industry *string `json:"industry,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// OpportunityPatch carries partial opportunity updates. Pipeline is absent on
// purpose: it is immutable after creation except via conversion.
type OpportunityPatch struct {
	CompanyName *string `json:"company_name,omitempty"`
	Title       *string `json:"title,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ContactPatch carries partial contact updates.
type ContactPatch struct {
	Name        *string `json:"name,omitempty"`
	RoleTitle   *string `json:"role_title,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	Status      *string `json:"status,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// TaskPatch carries partial task updates.
type TaskPatch struct {
	Title             *string `json:"title,omitempty"`
	DueDate           *string `json:"due_date,omitempty"`
	IsCompleted       *bool   `json:"is_completed,omitempty"`
	RelatedEntityID   *string `json:"related_entity_id,omitempty"`
	RelatedEntityName *string `json:"related_entity_name,omitempty"`
	Comments          *string `json:"comments,omitempty"`
}

func applyCompanyPatch(c *domain.Company, p CompanyPatch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Website != nil {
		c.Website = *p.Website
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.Industry != nil {
		c.Industry = *p.Industry
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

func applyOpportunityPatch(o *domain.Opportunity, p OpportunityPatch) {
	if p.CompanyName != nil {
		o.CompanyName = *p.CompanyName
	}
	if p.Title != nil {
		o.Title = *p.Title
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.Priority != nil {
		o.Priority = *p.Priority
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
}

func applyContactPatch(c *domain.Contact, p ContactPatch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.RoleTitle != nil {
		c.RoleTitle = *p.RoleTitle
	}
	if p.CompanyName != nil {
		c.CompanyName = *p.CompanyName
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

func applyTaskPatch(t *domain.Task, p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.RelatedEntityID != nil {
		t.RelatedEntityID = *p.RelatedEntityID
	}
	if p.RelatedEntityName != nil {
		t.RelatedEntityName = *p.RelatedEntityName
	}
	if p.Comments != nil {
		t.Comments = *p.Comments
	}
}
