package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"jobos/internal/domain"
	"jobos/internal/ledger"
	"jobos/internal/store"
)

var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC) // a Wednesday

func newTestEngine(t *testing.T) (Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.Now = func() time.Time { return testNow }
	e := New(mem)
	e.Now = func() time.Time { return testNow }
	return e, mem
}

func mustOpp(t *testing.T, e Engine, opts OpportunityCreateOptions) domain.Opportunity {
	t.Helper()
	o, err := e.CreateOpportunity(context.Background(), opts)
	if err != nil {
		t.Fatalf("create opportunity: %v", err)
	}
	return o
}

func mustContact(t *testing.T, e Engine, opts ContactCreateOptions) domain.Contact {
	t.Helper()
	c, err := e.CreateContact(context.Background(), opts)
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	return c
}

func lastEntry(t *testing.T, e Engine) ledger.Entry {
	t.Helper()
	entries, err := e.Activity(context.Background())
	if err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("activity ledger is empty")
	}
	return entries[0]
}

func TestCreateOpportunityDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	o := mustOpp(t, e, OpportunityCreateOptions{Title: "Firmware Engineer", CompanyName: "Tesla"})
	if o.Pipeline != domain.PipelineDiscovery {
		t.Fatalf("pipeline = %s", o.Pipeline)
	}
	if o.Status != "OPPORTUNITY_FOUND" {
		t.Fatalf("status = %s", o.Status)
	}
	if o.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %s", o.Priority)
	}
	entry := lastEntry(t, e)
	if entry.ActionType != ledger.ActionCreatedOpp {
		t.Fatalf("action = %s", entry.ActionType)
	}
	if entry.Details != "New opportunity: Firmware Engineer at Tesla" {
		t.Fatalf("details = %q", entry.Details)
	}
}

func TestCreateOpportunityValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	var verr *ValidationError

	if _, err := e.CreateOpportunity(ctx, OpportunityCreateOptions{CompanyName: "Tesla"}); !errors.As(err, &verr) {
		t.Fatalf("missing title: %v", err)
	}
	if _, err := e.CreateOpportunity(ctx, OpportunityCreateOptions{Title: "X", CompanyName: "Tesla",
		Pipeline: domain.PipelineNetworking}); !errors.As(err, &verr) {
		t.Fatalf("networking pipeline should be rejected for opportunities: %v", err)
	}
	if _, err := e.CreateOpportunity(ctx, OpportunityCreateOptions{Title: "X", CompanyName: "Tesla",
		Status: "INTERVIEWING"}); !errors.As(err, &verr) {
		t.Fatalf("application stage on discovery record should be rejected: %v", err)
	}
}

func TestTransitionRejectsForeignStage(t *testing.T) {
	e, _ := newTestEngine(t)
	o := mustOpp(t, e, OpportunityCreateOptions{Title: "Architect", CompanyName: "Siemens"})

	err := e.TransitionStage(context.Background(),
		domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}, "INTERVIEWING")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	got, err := e.Opportunities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != "OPPORTUNITY_FOUND" {
		t.Fatalf("rejected transition must leave record unchanged, status = %s", got[0].Status)
	}
}

func TestTransitionSameStageIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	o := mustOpp(t, e, OpportunityCreateOptions{Title: "Architect", CompanyName: "Siemens"})
	before, _ := e.Activity(context.Background())

	if err := e.TransitionStage(context.Background(),
		domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}, "OPPORTUNITY_FOUND"); err != nil {
		t.Fatalf("same-stage move: %v", err)
	}
	after, _ := e.Activity(context.Background())
	if len(after) != len(before) {
		t.Fatalf("no-op move must not log, %d -> %d entries", len(before), len(after))
	}
}

func TestSubmittedCreatesFollowUpTask(t *testing.T) {
	e, _ := newTestEngine(t)
	o := mustOpp(t, e, OpportunityCreateOptions{
		Title: "IoT Developer", CompanyName: "Bosch", Pipeline: domain.PipelineApplication})

	ref := domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}
	if err := e.TransitionStage(context.Background(), ref, "SUBMITTED"); err != nil {
		t.Fatalf("move to SUBMITTED: %v", err)
	}

	tasks, err := e.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected exactly one follow-up task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Title != "Follow up: IoT Developer (Bosch)" {
		t.Fatalf("task title = %q", task.Title)
	}
	if task.RelatedEntityID != o.ID || task.RelatedEntityName != "Bosch" {
		t.Fatalf("task link = %s / %s", task.RelatedEntityID, task.RelatedEntityName)
	}
	wantDue := testNow.Add(7 * 24 * time.Hour).Format(time.RFC3339)
	if task.DueDate != wantDue {
		t.Fatalf("due = %s, want %s", task.DueDate, wantDue)
	}

	// Leaving and re-entering SUBMITTED schedules another follow-up.
	if err := e.TransitionStage(context.Background(), ref, "FOLLOWED_UP"); err != nil {
		t.Fatal(err)
	}
	if err := e.TransitionStage(context.Background(), ref, "SUBMITTED"); err != nil {
		t.Fatal(err)
	}
	tasks, _ = e.Tasks(context.Background())
	if len(tasks) != 2 {
		t.Fatalf("expected a second follow-up task, got %d", len(tasks))
	}

	// Re-submitting while already SUBMITTED schedules nothing.
	if err := e.TransitionStage(context.Background(), ref, "SUBMITTED"); err != nil {
		t.Fatal(err)
	}
	tasks, _ = e.Tasks(context.Background())
	if len(tasks) != 2 {
		t.Fatalf("same-stage move must not schedule a task, got %d", len(tasks))
	}
}

func TestContactedLogsOutreach(t *testing.T) {
	e, _ := newTestEngine(t)
	c := mustContact(t, e, ContactCreateOptions{Name: "Hans Gruber", CompanyName: "Nakatomi Corp"})

	ref := domain.EntityRef{Kind: domain.KindContact, ID: c.ID}
	if err := e.TransitionStage(context.Background(), ref, "CONTACTED"); err != nil {
		t.Fatalf("move to CONTACTED: %v", err)
	}
	entry := lastEntry(t, e)
	if entry.ActionType != ledger.ActionOutreachSent || entry.Details != "Contacted Hans Gruber" {
		t.Fatalf("outreach entry = %s %q", entry.ActionType, entry.Details)
	}
}

func TestConvertOpportunityToApplication(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	o := mustOpp(t, e, OpportunityCreateOptions{
		Title: "Firmware Engineer", CompanyName: "Tesla", Priority: domain.PriorityHigh})

	// Unqualified record refuses conversion.
	if _, err := e.ConvertOpportunityToApplication(ctx, o.ID); err == nil {
		t.Fatal("conversion from OPPORTUNITY_FOUND should fail")
	}

	ref := domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}
	if err := e.TransitionStage(ctx, ref, "OPPORTUNITY_QUALIFIED"); err != nil {
		t.Fatal(err)
	}
	clone, err := e.ConvertOpportunityToApplication(ctx, o.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if clone.ID == o.ID {
		t.Fatal("conversion must mint a new record")
	}
	if clone.Pipeline != domain.PipelineApplication || clone.Status != "ACCEPTED" {
		t.Fatalf("clone = %s/%s", clone.Pipeline, clone.Status)
	}
	if clone.Title != o.Title || clone.CompanyName != o.CompanyName || clone.Priority != domain.PriorityHigh {
		t.Fatalf("clone did not carry fields: %+v", clone)
	}

	list, _ := e.Opportunities(ctx)
	if len(list) != 2 {
		t.Fatalf("expected original plus clone, got %d", len(list))
	}
	for _, got := range list {
		if got.ID == o.ID && got.Status != "ARCHIVED" {
			t.Fatalf("original not archived: %s", got.Status)
		}
	}
	entry := lastEntry(t, e)
	if entry.ActionType != ledger.ActionMovedStage ||
		entry.Details != "Converted Firmware Engineer to Application pipeline" {
		t.Fatalf("conversion entry = %s %q", entry.ActionType, entry.Details)
	}
}

func TestConvertContactToApplication(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := mustContact(t, e, ContactCreateOptions{
		Name: "Hans Gruber", RoleTitle: "Engineering Manager", CompanyName: "Nakatomi Corp"})

	if _, err := e.ConvertContactToApplication(ctx, c.ID); err == nil {
		t.Fatal("conversion before REFERRAL_OR_LEAD should fail")
	}

	ref := domain.EntityRef{Kind: domain.KindContact, ID: c.ID}
	if err := e.TransitionStage(ctx, ref, "REFERRAL_OR_LEAD"); err != nil {
		t.Fatal(err)
	}
	opp, err := e.ConvertContactToApplication(ctx, c.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if opp.Title != "Engineering Manager" || opp.CompanyName != "Nakatomi Corp" {
		t.Fatalf("opp = %+v", opp)
	}
	if opp.Pipeline != domain.PipelineApplication || opp.Status != "ACCEPTED" || opp.Priority != domain.PriorityMedium {
		t.Fatalf("opp defaults = %s/%s/%s", opp.Pipeline, opp.Status, opp.Priority)
	}
	if !strings.Contains(opp.Description, "Hans Gruber") {
		t.Fatalf("description = %q", opp.Description)
	}

	contacts, _ := e.Contacts(ctx)
	if contacts[0].Status != "CONVERTED_TO_OPP" {
		t.Fatalf("contact status = %s", contacts[0].Status)
	}
	entry := lastEntry(t, e)
	if entry.Details != "Converted networking contact Hans Gruber to Application pipeline" {
		t.Fatalf("conversion entry = %q", entry.Details)
	}
}

func TestConvertContactWithoutRoleTitle(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := mustContact(t, e, ContactCreateOptions{
		Name: "Holly Gennero", CompanyName: "Nakatomi Corp", Status: "REFERRAL_OR_LEAD"})

	opp, err := e.ConvertContactToApplication(ctx, c.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if opp.Title != "Referral from Holly Gennero" {
		t.Fatalf("fallback title = %q", opp.Title)
	}
}

func TestToggleTaskCompletion(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	task, err := e.CreateTask(ctx, TaskCreateOptions{Title: "Call recruiter"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.ToggleTaskCompletion(ctx, task.ID)
	if err != nil || !got.IsCompleted {
		t.Fatalf("toggle on: %v %+v", err, got)
	}
	entry := lastEntry(t, e)
	if entry.ActionType != ledger.ActionCompletedTask {
		t.Fatalf("completion not logged: %s", entry.ActionType)
	}

	before, _ := e.Activity(ctx)
	got, err = e.ToggleTaskCompletion(ctx, task.ID)
	if err != nil || got.IsCompleted {
		t.Fatalf("toggle off: %v %+v", err, got)
	}
	after, _ := e.Activity(ctx)
	if len(after) != len(before) {
		t.Fatal("un-completing must not log")
	}
}

func TestDeleteOpportunityKeepsTasks(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	o := mustOpp(t, e, OpportunityCreateOptions{
		Title: "Architect", CompanyName: "Siemens", Pipeline: domain.PipelineApplication})
	if err := e.TransitionStage(ctx, domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}, "SUBMITTED"); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteOpportunity(ctx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, _ := e.Tasks(ctx)
	if len(tasks) != 1 || tasks[0].RelatedEntityID != o.ID {
		t.Fatalf("follow-up task should survive its opportunity: %+v", tasks)
	}
}

func TestWeeklyMetricsFromLedger(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := mustOpp(t, e, OpportunityCreateOptions{
		Title: "IoT Developer", CompanyName: "Bosch", Pipeline: domain.PipelineApplication})
	if err := e.TransitionStage(ctx, domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}, "SUBMITTED"); err != nil {
		t.Fatal(err)
	}
	c := mustContact(t, e, ContactCreateOptions{Name: "Hans Gruber", CompanyName: "Nakatomi Corp"})
	if err := e.TransitionStage(ctx, domain.EntityRef{Kind: domain.KindContact, ID: c.ID}, "CONTACTED"); err != nil {
		t.Fatal(err)
	}
	task, err := e.CreateTask(ctx, TaskCreateOptions{Title: "Call recruiter"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.ToggleTaskCompletion(ctx, task.ID); err != nil {
		t.Fatal(err)
	}

	w, err := e.WeeklyMetrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if w.Apps != 1 {
		t.Fatalf("apps = %d", w.Apps)
	}
	// created_contact and the CONTACTED outreach entry both count.
	if w.Outreach != 2 {
		t.Fatalf("outreach = %d", w.Outreach)
	}
	if w.CompletedTasks != 1 {
		t.Fatalf("completed = %d", w.CompletedTasks)
	}
}

func TestPartialFailureReportsCompletedSteps(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()
	o := mustOpp(t, e, OpportunityCreateOptions{
		Title: "Firmware Engineer", CompanyName: "Tesla", Status: "OPPORTUNITY_QUALIFIED"})

	mem.FailUpdates = true
	_, err := e.ConvertOpportunityToApplication(ctx, o.ID)
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if len(pf.Completed) != 1 || pf.Failed != "archive original" {
		t.Fatalf("partial failure shape: %+v", pf)
	}

	// The clone survived even though the archive step failed.
	mem.FailUpdates = false
	list, _ := e.Opportunities(ctx)
	if len(list) != 2 {
		t.Fatalf("expected clone plus original, got %d records", len(list))
	}
}

func TestFailedLedgerAppendSurfaces(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()
	o := mustOpp(t, e, OpportunityCreateOptions{Title: "Architect", CompanyName: "Siemens"})

	mem.FailAppends = true
	err := e.TransitionStage(ctx,
		domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}, "OPPORTUNITY_QUALIFIED")
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if pf.Failed != "log activity" {
		t.Fatalf("failed step = %q", pf.Failed)
	}
	if len(pf.Completed) != 1 || pf.Completed[0] != "status updated" {
		t.Fatalf("completed steps = %v", pf.Completed)
	}

	// The stage change itself committed.
	list, _ := e.Opportunities(ctx)
	if list[0].Status != "OPPORTUNITY_QUALIFIED" {
		t.Fatalf("status = %s", list[0].Status)
	}
}

func TestCreateWithFailingLedgerReportsPartialFailure(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()
	mem.FailAppends = true

	c, err := e.CreateCompany(ctx, CompanyCreateOptions{Name: "Tesla"})
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if pf.Failed != "log activity" || c.ID == "" {
		t.Fatalf("partial failure shape: %+v, id=%q", pf, c.ID)
	}
	companies, _ := e.Companies(ctx)
	if len(companies) != 1 {
		t.Fatalf("company record should survive the failed append, got %d", len(companies))
	}
}

func TestSubmittedFollowUpFailureSurfaces(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()
	o := mustOpp(t, e, OpportunityCreateOptions{
		Title: "IoT Developer", CompanyName: "Bosch", Pipeline: domain.PipelineApplication})

	mem.FailTaskCreates = true
	err := e.TransitionStage(ctx,
		domain.EntityRef{Kind: domain.KindOpportunity, ID: o.ID}, "SUBMITTED")
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if pf.Op != "transition to SUBMITTED" || pf.Failed != "schedule follow-up" {
		t.Fatalf("partial failure shape: %+v", pf)
	}
	if len(pf.Completed) != 2 || pf.Completed[1] != "moved_stage logged" {
		t.Fatalf("completed steps = %v", pf.Completed)
	}

	// Stage change and ledger entry are in place; only the task is missing.
	list, _ := e.Opportunities(ctx)
	if list[0].Status != "SUBMITTED" {
		t.Fatalf("status = %s", list[0].Status)
	}
	if got := lastEntry(t, e); got.ActionType != ledger.ActionMovedStage {
		t.Fatalf("last entry = %s", got.ActionType)
	}
	tasks, _ := e.Tasks(ctx)
	if len(tasks) != 0 {
		t.Fatalf("no task should exist, got %d", len(tasks))
	}
}

func TestSeedDemoData(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	if err := e.SeedDemoData(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	opps, _ := e.Opportunities(ctx)
	if len(opps) != 3 {
		t.Fatalf("seeded %d opportunities", len(opps))
	}
	if err := e.SeedDemoData(ctx); err == nil {
		t.Fatal("seeding a populated workspace should fail")
	}
}
