package config

import "testing"

func TestFromYAMLDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("mode: local\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != ":8787" {
		t.Fatalf("addr default = %s", cfg.Server.Addr)
	}
}

func TestRemoteModeRequiresBaseURL(t *testing.T) {
	if _, err := FromYAML([]byte("mode: remote\n")); err == nil {
		t.Fatal("remote mode without base_url should fail validation")
	}
	cfg, err := FromYAML([]byte("mode: remote\nremote:\n  base_url: http://localhost:8787\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Remote.BaseURL != "http://localhost:8787" {
		t.Fatalf("base_url = %s", cfg.Remote.BaseURL)
	}
}

func TestUnknownModeRejected(t *testing.T) {
	if _, err := FromYAML([]byte("mode: cloud\n")); err == nil {
		t.Fatal("unknown mode should fail validation")
	}
}
