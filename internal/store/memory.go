package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobos/internal/domain"
	"jobos/internal/ledger"
)

// Memory is an in-process backend for guest mode and tests. It honors the
// same patch and ordering semantics as the local backend but keeps nothing
// durable.
type Memory struct {
	mu  sync.Mutex
	Now func() time.Time
	// FailUpdates makes every update return an error, for exercising
	// multi-step failure paths in tests.
	FailUpdates bool
	// FailAppends makes AppendActivity return an error, for exercising
	// ledger failure paths in tests.
	FailAppends bool
	// FailTaskCreates makes CreateTask return an error, for exercising
	// the follow-up automation failure path in tests.
	FailTaskCreates bool

	companies     []domain.Company
	opportunities []domain.Opportunity
	contacts      []domain.Contact
	tasks         []domain.Task
	logs          []ledger.Entry
	profile       *domain.Profile
}

func NewMemory() *Memory {
	return &Memory{Now: time.Now}
}

var (
	errUpdateRefused = errors.New("update refused")
	errAppendRefused = errors.New("append refused")
	errCreateRefused = errors.New("create refused")
)

func (s *Memory) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Memory) IsRemote() bool { return false }

func (s *Memory) Close() error { return nil }

func (s *Memory) Companies(ctx context.Context) ([]domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Company(nil), s.companies...), nil
}

func (s *Memory) CreateCompany(ctx context.Context, c domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies = append(s.companies, c)
	return nil
}

func (s *Memory) UpdateCompany(ctx context.Context, id string, p CompanyPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return errUpdateRefused
	}
	for i := range s.companies {
		if s.companies[i].ID == id {
			applyCompanyPatch(&s.companies[i], p)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) Opportunities(ctx context.Context) ([]domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Opportunity(nil), s.opportunities...), nil
}

func (s *Memory) CreateOpportunity(ctx context.Context, o domain.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunities = append(s.opportunities, o)
	return nil
}

func (s *Memory) UpdateOpportunity(ctx context.Context, id string, p OpportunityPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return errUpdateRefused
	}
	for i := range s.opportunities {
		if s.opportunities[i].ID == id {
			applyOpportunityPatch(&s.opportunities[i], p)
			s.opportunities[i].UpdatedAt = s.now().UTC().Format(time.RFC3339)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) DeleteOpportunity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.opportunities {
		if s.opportunities[i].ID == id {
			s.opportunities = append(s.opportunities[:i], s.opportunities[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) Contacts(ctx context.Context) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Contact(nil), s.contacts...), nil
}

func (s *Memory) CreateContact(ctx context.Context, c domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, c)
	return nil
}

func (s *Memory) UpdateContact(ctx context.Context, id string, p ContactPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return errUpdateRefused
	}
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			applyContactPatch(&s.contacts[i], p)
			s.contacts[i].UpdatedAt = s.now().UTC().Format(time.RFC3339)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) DeleteContact(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) Tasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasks...), nil
}

func (s *Memory) CreateTask(ctx context.Context, t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTaskCreates {
		return errCreateRefused
	}
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *Memory) UpdateTask(ctx context.Context, id string, p TaskPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return errUpdateRefused
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			applyTaskPatch(&s.tasks[i], p)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) Profile(ctx context.Context) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return domain.Profile{}, ErrNotFound
	}
	return *s.profile, nil
}

func (s *Memory) SaveProfile(ctx context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &p
	return nil
}

func (s *Memory) AppendActivity(ctx context.Context, actionType, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppends {
		return errAppendRefused
	}
	s.logs = append(s.logs, ledger.Entry{
		ID:         uuid.New().String(),
		ActionType: actionType,
		Details:    details,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	})
	return nil
}

func (s *Memory) ReadActivity(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Entry, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}
