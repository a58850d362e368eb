package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobos/internal/domain"
)

// SeedDemoData populates an empty store with a small sample dataset so a new
// workspace has something on the board. It refuses to run if any
// opportunities already exist.
func (e Engine) SeedDemoData(ctx context.Context) error {
	existing, err := e.Store.Opportunities(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return invalid("", "workspace already has data")
	}

	now := e.stamp()
	yesterday := e.now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	companies := []domain.Company{
		{ID: uuid.New().String(), Name: "Tesla", Industry: "Automotive", Location: "Austin, TX", Website: "https://tesla.com", CreatedAt: now},
		{ID: uuid.New().String(), Name: "Bosch", Industry: "IoT / Electronics", Location: "Germany", CreatedAt: now},
		{ID: uuid.New().String(), Name: "Nakatomi Corp", Industry: "Finance", Location: "Los Angeles", CreatedAt: now},
		{ID: uuid.New().String(), Name: "Siemens", Industry: "Industrial Automation", Location: "Munich", CreatedAt: now},
	}
	opps := []domain.Opportunity{
		{ID: uuid.New().String(), Title: "Firmware Engineer", CompanyName: "Tesla",
			Status: "OPPORTUNITY_QUALIFIED", Pipeline: domain.PipelineDiscovery,
			Priority: domain.PriorityHigh, UpdatedAt: now},
		{ID: uuid.New().String(), Title: "IoT Developer", CompanyName: "Bosch",
			Status: "CV_TAILORED", Pipeline: domain.PipelineApplication,
			Priority: domain.PriorityMedium, UpdatedAt: now},
		{ID: uuid.New().String(), Title: "Systems Architect", CompanyName: "Siemens",
			Status: "SUBMITTED", Pipeline: domain.PipelineApplication,
			Priority: domain.PriorityMedium, UpdatedAt: yesterday},
	}
	contacts := []domain.Contact{
		{ID: uuid.New().String(), Name: "Hans Gruber", RoleTitle: "Engineering Manager",
			CompanyName: "Nakatomi Corp", Status: "REFERRAL_OR_LEAD", UpdatedAt: now},
	}
	tasks := []domain.Task{
		{ID: uuid.New().String(), Title: "Customize CV for Bosch", DueDate: now,
			RelatedEntityID: opps[1].ID, RelatedEntityName: "Bosch", Comments: "Focus on RTOS experience"},
		{ID: uuid.New().String(), Title: "Follow up with Siemens Recruiter",
			DueDate:         e.now().UTC().Add(2 * 24 * time.Hour).Format(time.RFC3339),
			RelatedEntityID: opps[2].ID, RelatedEntityName: "Siemens"},
	}

	for _, c := range companies {
		if err := e.Store.CreateCompany(ctx, c); err != nil {
			return fmt.Errorf("seed company %s: %w", c.Name, err)
		}
	}
	for _, o := range opps {
		if err := e.Store.CreateOpportunity(ctx, o); err != nil {
			return fmt.Errorf("seed opportunity %s: %w", o.Title, err)
		}
	}
	for _, c := range contacts {
		if err := e.Store.CreateContact(ctx, c); err != nil {
			return fmt.Errorf("seed contact %s: %w", c.Name, err)
		}
	}
	for _, t := range tasks {
		if err := e.Store.CreateTask(ctx, t); err != nil {
			return fmt.Errorf("seed task %s: %w", t.Title, err)
		}
	}
	return nil
}
