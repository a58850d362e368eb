// Package engine implements the pipeline semantics on top of the persistence
// gateway: stage transitions, cross-pipeline conversions, the SUBMITTED
// follow-up automation, and the activity entries each operation records.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobos/internal/domain"
	"jobos/internal/ledger"
	"jobos/internal/metrics"
	"jobos/internal/store"
)

// ValidationError reports input the engine refused before touching storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PartialFailure reports a multi-step operation that stopped partway. The
// steps already applied are not rolled back; Completed names them so the
// caller can report exactly what state the data was left in.
type PartialFailure struct {
	Op        string
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s: step %q failed after %v: %v", e.Op, e.Failed, e.Completed, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

type Engine struct {
	Store store.Gateway
	Now   func() time.Time
}

func New(gw store.Gateway) Engine {
	return Engine{Store: gw, Now: time.Now}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log(ctx context.Context, actionType, details string) error {
	if err := e.Store.AppendActivity(ctx, actionType, details); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// CompanyCreateOptions are parameters for adding a target company.
type CompanyCreateOptions struct {
	Name     string
	Website  string
	Location string
	Industry string
	Notes    string
}

func (e Engine) CreateCompany(ctx context.Context, opts CompanyCreateOptions) (domain.Company, error) {
	if opts.Name == "" {
		return domain.Company{}, invalid("name", "is required")
	}
	c := domain.Company{
		ID:        uuid.New().String(),
		Name:      opts.Name,
		Website:   opts.Website,
		Location:  opts.Location,
		Industry:  opts.Industry,
		Notes:     opts.Notes,
		CreatedAt: e.stamp(),
	}
	if err := e.Store.CreateCompany(ctx, c); err != nil {
		return domain.Company{}, fmt.Errorf("create company: %w", err)
	}
	if err := e.log(ctx, ledger.ActionNewCompany, ledger.NewCompanyDetail(c.Name)); err != nil {
		return c, &PartialFailure{
			Op:        "create company",
			Completed: []string{"created company record"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	return c, nil
}

func (e Engine) UpdateCompany(ctx context.Context, id string, p store.CompanyPatch) error {
	if err := e.Store.UpdateCompany(ctx, id, p); err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}

func (e Engine) Companies(ctx context.Context) ([]domain.Company, error) {
	return e.Store.Companies(ctx)
}

// OpportunityCreateOptions are parameters for creating an opportunity.
// Pipeline defaults to discovery; Status defaults to the pipeline's entry
// stage; Priority defaults to medium.
type OpportunityCreateOptions struct {
	CompanyName string
	Title       string
	Pipeline    domain.Pipeline
	Status      string
	Priority    string
	Description string
}

func (e Engine) CreateOpportunity(ctx context.Context, opts OpportunityCreateOptions) (domain.Opportunity, error) {
	if opts.Title == "" {
		return domain.Opportunity{}, invalid("title", "is required")
	}
	if opts.CompanyName == "" {
		return domain.Opportunity{}, invalid("company_name", "is required")
	}
	if opts.Pipeline == "" {
		opts.Pipeline = domain.PipelineDiscovery
	}
	if opts.Pipeline != domain.PipelineDiscovery && opts.Pipeline != domain.PipelineApplication {
		return domain.Opportunity{}, invalid("pipeline", fmt.Sprintf("%q is not an opportunity pipeline", opts.Pipeline))
	}
	if opts.Status == "" {
		opts.Status = domain.InitialStage(opts.Pipeline)
	}
	if !domain.ValidStage(opts.Pipeline, opts.Status) {
		return domain.Opportunity{}, invalid("status", fmt.Sprintf("%q is not a %s stage", opts.Status, opts.Pipeline))
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(opts.Priority) {
		return domain.Opportunity{}, invalid("priority", fmt.Sprintf("%q is not a priority", opts.Priority))
	}
	o := domain.Opportunity{
		ID:          uuid.New().String(),
		CompanyName: opts.CompanyName,
		Title:       opts.Title,
		Status:      opts.Status,
		Pipeline:    opts.Pipeline,
		Priority:    opts.Priority,
		UpdatedAt:   e.stamp(),
		Description: opts.Description,
	}
	if err := e.Store.CreateOpportunity(ctx, o); err != nil {
		return domain.Opportunity{}, fmt.Errorf("create opportunity: %w", err)
	}
	if err := e.log(ctx, ledger.ActionCreatedOpp, ledger.CreatedOppDetail(o.Title, o.CompanyName)); err != nil {
		return o, &PartialFailure{
			Op:        "create opportunity",
			Completed: []string{"created opportunity record"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	return o, nil
}

func (e Engine) Opportunities(ctx context.Context) ([]domain.Opportunity, error) {
	return e.Store.Opportunities(ctx)
}

func (e Engine) UpdateOpportunity(ctx context.Context, id string, p store.OpportunityPatch) error {
	if p.Status != nil {
		opp, err := e.getOpportunity(ctx, id)
		if err != nil {
			return err
		}
		if !domain.ValidStage(opp.Pipeline, *p.Status) {
			return invalid("status", fmt.Sprintf("%q is not a %s stage", *p.Status, opp.Pipeline))
		}
	}
	if p.Priority != nil && !domain.ValidPriority(*p.Priority) {
		return invalid("priority", fmt.Sprintf("%q is not a priority", *p.Priority))
	}
	if err := e.Store.UpdateOpportunity(ctx, id, p); err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	return nil
}

// DeleteOpportunity removes the record. Tasks that reference it keep their
// dangling related_entity_id; links are advisory, not foreign keys.
func (e Engine) DeleteOpportunity(ctx context.Context, id string) error {
	if err := e.Store.DeleteOpportunity(ctx, id); err != nil {
		return fmt.Errorf("delete opportunity: %w", err)
	}
	return nil
}

// ContactCreateOptions are parameters for adding a networking contact.
// Status defaults to PERSON_IDENTIFIED.
type ContactCreateOptions struct {
	Name        string
	RoleTitle   string
	CompanyName string
	Status      string
	Notes       string
}

func (e Engine) CreateContact(ctx context.Context, opts ContactCreateOptions) (domain.Contact, error) {
	if opts.Name == "" {
		return domain.Contact{}, invalid("name", "is required")
	}
	if opts.CompanyName == "" {
		return domain.Contact{}, invalid("company_name", "is required")
	}
	if opts.Status == "" {
		opts.Status = domain.InitialStage(domain.PipelineNetworking)
	}
	if !domain.ValidStage(domain.PipelineNetworking, opts.Status) {
		return domain.Contact{}, invalid("status", fmt.Sprintf("%q is not a networking stage", opts.Status))
	}
	c := domain.Contact{
		ID:          uuid.New().String(),
		Name:        opts.Name,
		RoleTitle:   opts.RoleTitle,
		CompanyName: opts.CompanyName,
		Status:      opts.Status,
		Notes:       opts.Notes,
		UpdatedAt:   e.stamp(),
	}
	if err := e.Store.CreateContact(ctx, c); err != nil {
		return domain.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	if err := e.log(ctx, ledger.ActionCreatedContact, ledger.CreatedContactDetail(c.Name, c.CompanyName)); err != nil {
		return c, &PartialFailure{
			Op:        "create contact",
			Completed: []string{"created contact record"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	return c, nil
}

func (e Engine) Contacts(ctx context.Context) ([]domain.Contact, error) {
	return e.Store.Contacts(ctx)
}

func (e Engine) UpdateContact(ctx context.Context, id string, p store.ContactPatch) error {
	if p.Status != nil && !domain.ValidStage(domain.PipelineNetworking, *p.Status) {
		return invalid("status", fmt.Sprintf("%q is not a networking stage", *p.Status))
	}
	if err := e.Store.UpdateContact(ctx, id, p); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return nil
}

func (e Engine) DeleteContact(ctx context.Context, id string) error {
	if err := e.Store.DeleteContact(ctx, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// TaskCreateOptions are parameters for creating a follow-up task.
type TaskCreateOptions struct {
	Title             string
	DueDate           string
	RelatedEntityID   string
	RelatedEntityName string
	Comments          string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, invalid("title", "is required")
	}
	t := domain.Task{
		ID:                uuid.New().String(),
		Title:             opts.Title,
		DueDate:           opts.DueDate,
		RelatedEntityID:   opts.RelatedEntityID,
		RelatedEntityName: opts.RelatedEntityName,
		Comments:          opts.Comments,
	}
	if t.DueDate == "" {
		t.DueDate = e.stamp()
	}
	if err := e.Store.CreateTask(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (e Engine) Tasks(ctx context.Context) ([]domain.Task, error) {
	return e.Store.Tasks(ctx)
}

func (e Engine) UpdateTask(ctx context.Context, id string, p store.TaskPatch) error {
	if err := e.Store.UpdateTask(ctx, id, p); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (e Engine) DeleteTask(ctx context.Context, id string) error {
	if err := e.Store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ToggleTaskCompletion flips a task's completion state. Only the incomplete
// to complete edge is logged; un-completing is silent.
func (e Engine) ToggleTaskCompletion(ctx context.Context, id string) (domain.Task, error) {
	tasks, err := e.Store.Tasks(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		next := !t.IsCompleted
		if err := e.Store.UpdateTask(ctx, id, store.TaskPatch{IsCompleted: &next}); err != nil {
			return domain.Task{}, fmt.Errorf("toggle task: %w", err)
		}
		t.IsCompleted = next
		if next {
			if err := e.log(ctx, ledger.ActionCompletedTask, ledger.CompletedTaskDetail); err != nil {
				return t, &PartialFailure{
					Op:        "complete task",
					Completed: []string{"task updated"},
					Failed:    "log activity",
					Err:       err,
				}
			}
		}
		return t, nil
	}
	return domain.Task{}, store.ErrNotFound
}

func (e Engine) getOpportunity(ctx context.Context, id string) (domain.Opportunity, error) {
	list, err := e.Store.Opportunities(ctx)
	if err != nil {
		return domain.Opportunity{}, err
	}
	for _, o := range list {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Opportunity{}, store.ErrNotFound
}

func (e Engine) getContact(ctx context.Context, id string) (domain.Contact, error) {
	list, err := e.Store.Contacts(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Contact{}, store.ErrNotFound
}

// TransitionStage moves an opportunity or contact to a new stage within its
// own pipeline. Moving to the current stage is a no-op. Side effects:
// an opportunity entering SUBMITTED gets a follow-up task due in seven days,
// and a contact entering CONTACTED records an outreach entry.
func (e Engine) TransitionStage(ctx context.Context, ref domain.EntityRef, stage string) error {
	switch ref.Kind {
	case domain.KindOpportunity:
		return e.transitionOpportunity(ctx, ref.ID, stage)
	case domain.KindContact:
		return e.transitionContact(ctx, ref.ID, stage)
	}
	return invalid("kind", fmt.Sprintf("%q is not a stage-bearing entity", ref.Kind))
}

func (e Engine) transitionOpportunity(ctx context.Context, id, stage string) error {
	opp, err := e.getOpportunity(ctx, id)
	if err != nil {
		return err
	}
	if !domain.ValidStage(opp.Pipeline, stage) {
		return invalid("status", fmt.Sprintf("%q is not a %s stage", stage, opp.Pipeline))
	}
	if opp.Status == stage {
		return nil
	}
	if err := e.Store.UpdateOpportunity(ctx, id, store.OpportunityPatch{Status: &stage}); err != nil {
		return fmt.Errorf("move opportunity: %w", err)
	}
	if err := e.log(ctx, ledger.ActionMovedStage, ledger.MovedOppDetail(stage)); err != nil {
		return &PartialFailure{
			Op:        "move opportunity",
			Completed: []string{"status updated"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	if stage == "SUBMITTED" {
		if err := e.scheduleFollowUp(ctx, opp); err != nil {
			return &PartialFailure{
				Op:        "transition to SUBMITTED",
				Completed: []string{"status updated", "moved_stage logged"},
				Failed:    "schedule follow-up",
				Err:       err,
			}
		}
	}
	return nil
}

// scheduleFollowUp creates the automatic follow-up task for a submitted
// application. The stage change is already committed when this runs; a
// failure surfaces as the final step of the transition.
func (e Engine) scheduleFollowUp(ctx context.Context, opp domain.Opportunity) error {
	t := domain.Task{
		ID:                uuid.New().String(),
		Title:             fmt.Sprintf("Follow up: %s (%s)", opp.Title, opp.CompanyName),
		DueDate:           e.now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339),
		RelatedEntityID:   opp.ID,
		RelatedEntityName: opp.CompanyName,
	}
	if err := e.Store.CreateTask(ctx, t); err != nil {
		return fmt.Errorf("create follow-up task: %w", err)
	}
	return nil
}

func (e Engine) transitionContact(ctx context.Context, id, stage string) error {
	c, err := e.getContact(ctx, id)
	if err != nil {
		return err
	}
	if !domain.ValidStage(domain.PipelineNetworking, stage) {
		return invalid("status", fmt.Sprintf("%q is not a networking stage", stage))
	}
	if c.Status == stage {
		return nil
	}
	if err := e.Store.UpdateContact(ctx, id, store.ContactPatch{Status: &stage}); err != nil {
		return fmt.Errorf("move contact: %w", err)
	}
	if err := e.log(ctx, ledger.ActionMovedStage, ledger.MovedContactDetail(stage)); err != nil {
		return &PartialFailure{
			Op:        "move contact",
			Completed: []string{"status updated"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	if stage == "CONTACTED" {
		if err := e.log(ctx, ledger.ActionOutreachSent, ledger.OutreachDetail(c.Name)); err != nil {
			return &PartialFailure{
				Op:        "move contact",
				Completed: []string{"status updated", "moved_stage logged"},
				Failed:    "log outreach",
				Err:       err,
			}
		}
	}
	return nil
}

// ConvertOpportunityToApplication promotes a qualified discovery opportunity:
// a new record is cloned into the application pipeline at ACCEPTED and the
// original is archived. The clone and the archive are separate writes; if the
// archive fails the clone stays and a PartialFailure reports it.
func (e Engine) ConvertOpportunityToApplication(ctx context.Context, id string) (domain.Opportunity, error) {
	opp, err := e.getOpportunity(ctx, id)
	if err != nil {
		return domain.Opportunity{}, err
	}
	if opp.Pipeline != domain.PipelineDiscovery {
		return domain.Opportunity{}, invalid("pipeline", "only discovery opportunities can be converted")
	}
	if opp.Status != "OPPORTUNITY_QUALIFIED" {
		return domain.Opportunity{}, invalid("status", "opportunity must be qualified before conversion")
	}

	clone := opp
	clone.ID = uuid.New().String()
	clone.Pipeline = domain.PipelineApplication
	clone.Status = domain.InitialStage(domain.PipelineApplication)
	clone.UpdatedAt = e.stamp()
	if err := e.Store.CreateOpportunity(ctx, clone); err != nil {
		return domain.Opportunity{}, fmt.Errorf("convert opportunity: %w", err)
	}

	archived := "ARCHIVED"
	if err := e.Store.UpdateOpportunity(ctx, id, store.OpportunityPatch{Status: &archived}); err != nil {
		return clone, &PartialFailure{
			Op:        "convert opportunity",
			Completed: []string{"created application record"},
			Failed:    "archive original",
			Err:       err,
		}
	}
	if err := e.log(ctx, ledger.ActionMovedStage, ledger.ConvertedOppDetail(opp.Title)); err != nil {
		return clone, &PartialFailure{
			Op:        "convert opportunity",
			Completed: []string{"created application record", "archived original"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	return clone, nil
}

// ConvertContactToApplication turns a contact's referral into an application
// opportunity. The contact must be at REFERRAL_OR_LEAD; afterwards it moves
// to CONVERTED_TO_OPP. Like the opportunity conversion, the two writes are
// not atomic and a failed second step surfaces as a PartialFailure.
func (e Engine) ConvertContactToApplication(ctx context.Context, id string) (domain.Opportunity, error) {
	c, err := e.getContact(ctx, id)
	if err != nil {
		return domain.Opportunity{}, err
	}
	if c.Status != "REFERRAL_OR_LEAD" {
		return domain.Opportunity{}, invalid("status", "contact must hold a referral or lead before conversion")
	}

	title := c.RoleTitle
	if title == "" {
		title = fmt.Sprintf("Referral from %s", c.Name)
	}
	opp := domain.Opportunity{
		ID:          uuid.New().String(),
		CompanyName: c.CompanyName,
		Title:       title,
		Status:      domain.InitialStage(domain.PipelineApplication),
		Pipeline:    domain.PipelineApplication,
		Priority:    domain.PriorityMedium,
		UpdatedAt:   e.stamp(),
		Description: fmt.Sprintf("Converted from networking contact: %s", c.Name),
	}
	if err := e.Store.CreateOpportunity(ctx, opp); err != nil {
		return domain.Opportunity{}, fmt.Errorf("convert contact: %w", err)
	}

	converted := "CONVERTED_TO_OPP"
	if err := e.Store.UpdateContact(ctx, id, store.ContactPatch{Status: &converted}); err != nil {
		return opp, &PartialFailure{
			Op:        "convert contact",
			Completed: []string{"created application record"},
			Failed:    "close out contact",
			Err:       err,
		}
	}
	if err := e.log(ctx, ledger.ActionMovedStage, ledger.ConvertedContactDetail(c.Name)); err != nil {
		return opp, &PartialFailure{
			Op:        "convert contact",
			Completed: []string{"created application record", "closed out contact"},
			Failed:    "log activity",
			Err:       err,
		}
	}
	return opp, nil
}

// Activity returns the ledger newest-first.
func (e Engine) Activity(ctx context.Context) ([]ledger.Entry, error) {
	return e.Store.ReadActivity(ctx)
}

// WeeklyMetrics computes the current week's counters from the ledger.
func (e Engine) WeeklyMetrics(ctx context.Context) (metrics.Weekly, error) {
	entries, err := e.Store.ReadActivity(ctx)
	if err != nil {
		return metrics.Weekly{}, err
	}
	return metrics.ComputeWeekly(entries, e.now()), nil
}

// Profile reads the singleton profile. ErrNotFound means onboarding has not
// completed yet.
func (e Engine) Profile(ctx context.Context) (domain.Profile, error) {
	return e.Store.Profile(ctx)
}

func (e Engine) SaveProfile(ctx context.Context, p domain.Profile) error {
	if p.FullName == "" {
		return invalid("full_name", "is required")
	}
	if err := e.Store.SaveProfile(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
