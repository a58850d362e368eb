package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobos/internal/domain"
	"jobos/internal/ledger"
)

// Collection keys. The jobcrm_ prefix namespaces every collection and matches
// the layout the original client persisted, so exported data stays portable.
const (
	keyCompanies     = "jobcrm_companies"
	keyOpportunities = "jobcrm_opportunities"
	keyContacts      = "jobcrm_contacts"
	keyTasks         = "jobcrm_tasks"
	keyLogs          = "jobcrm_logs"
	keyProfile       = "jobcrm_profile"
)

// Local is the offline backend. Every entity kind lives in one serialized
// JSON collection that is fully rewritten on each mutation; O(n) per write is
// acceptable at single-user data volumes. Ordering is caller-assigned: logs
// are stored in append order and reversed on read.
type Local struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewLocal wraps an opened, migrated database.
func NewLocal(conn *sql.DB) *Local {
	return &Local{DB: conn, Now: time.Now}
}

func (s *Local) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Local) IsRemote() bool { return false }

func (s *Local) Close() error { return s.DB.Close() }

func loadCollection[T any](ctx context.Context, conn *sql.DB, key string) ([]T, error) {
	var payload string
	err := conn.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key=?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", key, err)
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, conn *sql.DB, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", key, err)
	}
	_, err = conn.ExecContext(ctx, `INSERT INTO collections(key,payload) VALUES (?,?)
ON CONFLICT(key) DO UPDATE SET payload=excluded.payload`, key, string(payload))
	return err
}

func (s *Local) Companies(ctx context.Context) ([]domain.Company, error) {
	return loadCollection[domain.Company](ctx, s.DB, keyCompanies)
}

func (s *Local) CreateCompany(ctx context.Context, c domain.Company) error {
	list, err := loadCollection[domain.Company](ctx, s.DB, keyCompanies)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.DB, keyCompanies, append(list, c))
}

func (s *Local) UpdateCompany(ctx context.Context, id string, p CompanyPatch) error {
	list, err := loadCollection[domain.Company](ctx, s.DB, keyCompanies)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			applyCompanyPatch(&list[i], p)
			return saveCollection(ctx, s.DB, keyCompanies, list)
		}
	}
	return ErrNotFound
}

func (s *Local) Opportunities(ctx context.Context) ([]domain.Opportunity, error) {
	return loadCollection[domain.Opportunity](ctx, s.DB, keyOpportunities)
}

func (s *Local) CreateOpportunity(ctx context.Context, o domain.Opportunity) error {
	list, err := loadCollection[domain.Opportunity](ctx, s.DB, keyOpportunities)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.DB, keyOpportunities, append(list, o))
}

func (s *Local) UpdateOpportunity(ctx context.Context, id string, p OpportunityPatch) error {
	list, err := loadCollection[domain.Opportunity](ctx, s.DB, keyOpportunities)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			applyOpportunityPatch(&list[i], p)
			list[i].UpdatedAt = s.now().UTC().Format(time.RFC3339)
			return saveCollection(ctx, s.DB, keyOpportunities, list)
		}
	}
	return ErrNotFound
}

func (s *Local) DeleteOpportunity(ctx context.Context, id string) error {
	list, err := loadCollection[domain.Opportunity](ctx, s.DB, keyOpportunities)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, o := range list {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	if len(kept) == len(list) {
		return ErrNotFound
	}
	return saveCollection(ctx, s.DB, keyOpportunities, kept)
}

func (s *Local) Contacts(ctx context.Context) ([]domain.Contact, error) {
	return loadCollection[domain.Contact](ctx, s.DB, keyContacts)
}

func (s *Local) CreateContact(ctx context.Context, c domain.Contact) error {
	list, err := loadCollection[domain.Contact](ctx, s.DB, keyContacts)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.DB, keyContacts, append(list, c))
}

func (s *Local) UpdateContact(ctx context.Context, id string, p ContactPatch) error {
	list, err := loadCollection[domain.Contact](ctx, s.DB, keyContacts)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			applyContactPatch(&list[i], p)
			list[i].UpdatedAt = s.now().UTC().Format(time.RFC3339)
			return saveCollection(ctx, s.DB, keyContacts, list)
		}
	}
	return ErrNotFound
}

func (s *Local) DeleteContact(ctx context.Context, id string) error {
	list, err := loadCollection[domain.Contact](ctx, s.DB, keyContacts)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, c := range list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		return ErrNotFound
	}
	return saveCollection(ctx, s.DB, keyContacts, kept)
}

func (s *Local) Tasks(ctx context.Context) ([]domain.Task, error) {
	return loadCollection[domain.Task](ctx, s.DB, keyTasks)
}

func (s *Local) CreateTask(ctx context.Context, t domain.Task) error {
	list, err := loadCollection[domain.Task](ctx, s.DB, keyTasks)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.DB, keyTasks, append(list, t))
}

// UpdateTask applies the patch without stamping a timestamp. Tasks carry no
// updated_at field, matching the source system's asymmetry for task updates.
func (s *Local) UpdateTask(ctx context.Context, id string, p TaskPatch) error {
	list, err := loadCollection[domain.Task](ctx, s.DB, keyTasks)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			applyTaskPatch(&list[i], p)
			return saveCollection(ctx, s.DB, keyTasks, list)
		}
	}
	return ErrNotFound
}

func (s *Local) DeleteTask(ctx context.Context, id string) error {
	list, err := loadCollection[domain.Task](ctx, s.DB, keyTasks)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, t := range list {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		return ErrNotFound
	}
	return saveCollection(ctx, s.DB, keyTasks, kept)
}

func (s *Local) Profile(ctx context.Context) (domain.Profile, error) {
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key=?`, keyProfile).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Profile{}, ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	var p domain.Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *Local) SaveProfile(ctx context.Context, p domain.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO collections(key,payload) VALUES (?,?)
ON CONFLICT(key) DO UPDATE SET payload=excluded.payload`, keyProfile, string(payload))
	return err
}

func (s *Local) AppendActivity(ctx context.Context, actionType, details string) error {
	list, err := loadCollection[ledger.Entry](ctx, s.DB, keyLogs)
	if err != nil {
		return err
	}
	entry := ledger.Entry{
		ID:         uuid.New().String(),
		ActionType: actionType,
		Details:    details,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	return saveCollection(ctx, s.DB, keyLogs, append(list, entry))
}

func (s *Local) ReadActivity(ctx context.Context) ([]ledger.Entry, error) {
	list, err := loadCollection[ledger.Entry](ctx, s.DB, keyLogs)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out, nil
}
