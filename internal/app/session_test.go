package app

import (
	"testing"

	"jobos/internal/config"
)

func TestOpenLocalMigratesAndServes(t *testing.T) {
	cfg := config.Default()
	s, err := Open(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if s.Gateway() == nil || s.Gateway().IsRemote() {
		t.Fatal("local session should hold a local gateway")
	}
	if s.Remote() != nil {
		t.Fatal("local session should have no remote backend")
	}
}

func TestSwitchingBumpsGeneration(t *testing.T) {
	s := &Session{Workspace: t.TempDir()}
	s.UseMemory()
	gen := s.Generation()

	s.ConnectRemote("http://localhost:8787", "")
	if s.Generation() <= gen {
		t.Fatal("switching backends must bump the generation")
	}
	if s.Remote() == nil || !s.Gateway().IsRemote() {
		t.Fatal("session should hold the remote gateway after connect")
	}

	s.UseMemory()
	if s.Gateway().IsRemote() {
		t.Fatal("session should drop the remote gateway after disconnect")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
