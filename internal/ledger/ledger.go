// Package ledger defines the append-only activity log: the action vocabulary,
// the entry shape, and the detail strings each domain event records. The
// ledger is the sole input to weekly metrics, so detail strings are part of
// the observable contract and must not drift.
package ledger

import "fmt"

// Action types recorded in the ledger.
const (
	ActionNewCompany     = "new_company"
	ActionCreatedOpp     = "created_opp"
	ActionCreatedContact = "created_contact"
	ActionMovedStage     = "moved_stage"
	ActionOutreachSent   = "outreach_sent"
	ActionCompletedTask  = "completed_task"
)

// Entry is one immutable activity record. Entries are never mutated or
// deleted after append.
type Entry struct {
	ID         string `json:"id"`
	ActionType string `json:"action_type"`
	Details    string `json:"details,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// Detail constructors. Metrics classification matches on these strings.

func NewCompanyDetail(name string) string {
	return fmt.Sprintf("Added target company: %s", name)
}

func CreatedOppDetail(title, companyName string) string {
	return fmt.Sprintf("New opportunity: %s at %s", title, companyName)
}

func CreatedContactDetail(name, companyName string) string {
	return fmt.Sprintf("Added contact %s at %s", name, companyName)
}

func MovedOppDetail(stage string) string {
	return fmt.Sprintf("Moved opp to %s", stage)
}

func MovedContactDetail(stage string) string {
	return fmt.Sprintf("Moved contact to %s", stage)
}

func ConvertedOppDetail(title string) string {
	return fmt.Sprintf("Converted %s to Application pipeline", title)
}

func ConvertedContactDetail(name string) string {
	return fmt.Sprintf("Converted networking contact %s to Application pipeline", name)
}

func OutreachDetail(name string) string {
	return fmt.Sprintf("Contacted %s", name)
}

const CompletedTaskDetail = "Task completed"
