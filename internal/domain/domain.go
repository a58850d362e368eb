package domain

import "fmt"

// Pipeline identifies one of the three independent workflows.
type Pipeline string

const (
	PipelineDiscovery   Pipeline = "discovery"
	PipelineApplication Pipeline = "application"
	PipelineNetworking  Pipeline = "networking"
)

// Stage vocabularies. Stages are flat sets: any stage can be entered from any
// other by direct assignment, no forward-only ordering is enforced.
var (
	StagesDiscovery = []string{
		"OPPORTUNITY_FOUND",
		"OPPORTUNITY_QUALIFIED",
		"ARCHIVED",
	}
	StagesApplication = []string{
		"ACCEPTED",
		"CV_TAILORED",
		"SUBMITTED",
		"FOLLOWED_UP",
		"INTERVIEWING",
		"OFFER",
		"REJECTED",
	}
	StagesNetworking = []string{
		"PERSON_IDENTIFIED",
		"CONTACTED",
		"CONVERSATION_STARTED",
		"REFERRAL_OR_LEAD",
		"CONVERTED_TO_OPP",
		"CLOSED",
	}
)

// Priority values for opportunities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Stages returns the stage vocabulary for a pipeline. Unknown pipelines have
// an empty vocabulary.
func Stages(p Pipeline) []string {
	switch p {
	case PipelineDiscovery:
		return StagesDiscovery
	case PipelineApplication:
		return StagesApplication
	case PipelineNetworking:
		return StagesNetworking
	}
	return nil
}

// ValidStage reports whether stage belongs to the pipeline's vocabulary.
func ValidStage(p Pipeline, stage string) bool {
	for _, s := range Stages(p) {
		if s == stage {
			return true
		}
	}
	return false
}

// InitialStage returns the entry stage for a pipeline.
func InitialStage(p Pipeline) string {
	switch p {
	case PipelineDiscovery:
		return "OPPORTUNITY_FOUND"
	case PipelineApplication:
		return "ACCEPTED"
	case PipelineNetworking:
		return "PERSON_IDENTIFIED"
	}
	return ""
}

// ValidPriority reports whether v is a recognized priority.
func ValidPriority(v string) bool {
	return v == PriorityLow || v == PriorityMedium || v == PriorityHigh
}

// Company is a target employer. Companies are referenced by other records via
// name, not id, and are never hard-deleted.
type Company struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Website   string `json:"website,omitempty"`
	Location  string `json:"location,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Opportunity is a tracked role in the discovery or application pipeline.
// Status must always belong to the stage set of Pipeline; Pipeline is
// immutable after creation except via conversion, which creates a new record.
type Opportunity struct {
	ID          string   `json:"id"`
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Pipeline    Pipeline `json:"pipeline" enum:"discovery,application"`
	Priority    string   `json:"priority" enum:"low,medium,high"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	Description string   `json:"description,omitempty"`
}

// Contact is a networking-pipeline person. Contacts carry no pipeline field;
// they belong implicitly to networking.
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RoleTitle   string `json:"role_title"`
	CompanyName string `json:"company_name"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// Task is a follow-up item, created standalone, from a pipeline card, or by
// the SUBMITTED automation.
type Task struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	DueDate           string `json:"due_date" format:"date-time"`
	IsCompleted       bool   `json:"is_completed"`
	RelatedEntityID   string `json:"related_entity_id,omitempty"`
	RelatedEntityName string `json:"related_entity_name,omitempty"`
	Comments          string `json:"comments,omitempty"`
}

// WeeklyTargets are the profile's weekly goals.
type WeeklyTargets struct {
	Applications int `json:"applications"`
	Outreaches   int `json:"outreaches"`
	NewCompanies int `json:"new_companies"`
}

// Profile is the per-account singleton. A missing profile signals that
// onboarding is required.
type Profile struct {
	FullName      string        `json:"full_name"`
	RoleFocus     []string      `json:"role_focus"`
	DeadlineDate  string        `json:"deadline_date" format:"date"`
	WeeklyTargets WeeklyTargets `json:"weekly_targets"`
}

// DefaultProfile mirrors the seed profile used before onboarding completes.
func DefaultProfile() Profile {
	return Profile{
		FullName:      "Engineer",
		RoleFocus:     []string{"Embedded Systems", "Firmware"},
		WeeklyTargets: WeeklyTargets{Applications: 5, Outreaches: 10, NewCompanies: 10},
	}
}

// Entity reference kinds for stage operations and task links.
const (
	KindOpportunity = "opportunity"
	KindContact     = "contact"
)

// EntityRef points at an opportunity or contact.
type EntityRef struct {
	Kind string `json:"kind" enum:"opportunity,contact"`
	ID   string `json:"id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}
