package domain

import "testing"

func TestValidStage(t *testing.T) {
	cases := []struct {
		pipeline Pipeline
		stage    string
		want     bool
	}{
		{PipelineDiscovery, "OPPORTUNITY_FOUND", true},
		{PipelineDiscovery, "ARCHIVED", true},
		{PipelineDiscovery, "SUBMITTED", false},
		{PipelineApplication, "SUBMITTED", true},
		{PipelineApplication, "OPPORTUNITY_FOUND", false},
		{PipelineNetworking, "REFERRAL_OR_LEAD", true},
		{PipelineNetworking, "ACCEPTED", false},
		{Pipeline("unknown"), "ACCEPTED", false},
	}
	for _, c := range cases {
		if got := ValidStage(c.pipeline, c.stage); got != c.want {
			t.Errorf("ValidStage(%s, %s) = %v, want %v", c.pipeline, c.stage, got, c.want)
		}
	}
}

func TestInitialStage(t *testing.T) {
	if got := InitialStage(PipelineDiscovery); got != "OPPORTUNITY_FOUND" {
		t.Fatalf("discovery initial stage: %s", got)
	}
	if got := InitialStage(PipelineApplication); got != "ACCEPTED" {
		t.Fatalf("application initial stage: %s", got)
	}
	if got := InitialStage(PipelineNetworking); got != "PERSON_IDENTIFIED" {
		t.Fatalf("networking initial stage: %s", got)
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh} {
		if !ValidPriority(p) {
			t.Errorf("expected %s valid", p)
		}
	}
	if ValidPriority("urgent") {
		t.Error("urgent should not be valid")
	}
}
