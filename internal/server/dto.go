package server

import (
	"jobos/internal/domain"
	"jobos/internal/ledger"
)

// List envelopes. Collections always travel wrapped so empty results encode
// as {"items": []} rather than null.

type CompanyList struct {
	Items []domain.Company `json:"items"`
}

type OpportunityList struct {
	Items []domain.Opportunity `json:"items"`
}

type ContactList struct {
	Items []domain.Contact `json:"items"`
}

type TaskList struct {
	Items []domain.Task `json:"items"`
}

type ActivityList struct {
	Items []ledger.Entry `json:"items"`
}

type AppendActivityRequest struct {
	ActionType string `json:"action_type"`
	Details    string `json:"details,omitempty"`
}

type TokenRequest struct {
	Secret string `json:"secret"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
