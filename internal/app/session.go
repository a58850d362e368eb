// Package app wires a configured backend into a live session. A session owns
// exactly one gateway at a time; switching backends closes the old one and
// invalidates engines bound to it.
package app

import (
	"context"
	"fmt"

	"jobos/internal/config"
	"jobos/internal/db"
	"jobos/internal/engine"
	"jobos/internal/migrate"
	"jobos/internal/store"
)

// Session tracks the active backend. The generation counter increments on
// every switch so callers holding a stale engine can detect it.
type Session struct {
	Workspace  string
	gateway    store.Gateway
	generation int
}

// Open builds a session from the workspace config: local opens SQLite and
// runs migrations, remote builds an HTTP client, memory keeps everything
// in-process.
func Open(workspace string, cfg *config.Config) (*Session, error) {
	s := &Session{Workspace: workspace}
	switch cfg.Mode {
	case config.ModeLocal:
		if err := s.UseLocal(); err != nil {
			return nil, err
		}
	case config.ModeRemote:
		s.ConnectRemote(cfg.Remote.BaseURL, cfg.Remote.Token)
	case config.ModeMemory:
		s.UseMemory()
	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Mode)
	}
	return s, nil
}

func (s *Session) swap(gw store.Gateway) {
	if s.gateway != nil {
		_ = s.gateway.Close()
	}
	s.gateway = gw
	s.generation++
}

// UseLocal activates the SQLite backend for the session's workspace.
func (s *Session) UseLocal() error {
	conn, err := db.Open(db.Config{Workspace: s.Workspace})
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return fmt.Errorf("migrate local store: %w", err)
	}
	s.swap(store.NewLocal(conn))
	return nil
}

// ConnectRemote activates the remote backend. The token may be empty; reads
// work unauthenticated against a server with auth disabled, and mutations
// will report that authentication is required.
func (s *Session) ConnectRemote(baseURL, token string) *store.Remote {
	r := store.NewRemote(baseURL, token)
	s.swap(r)
	return r
}

// UseMemory activates the throwaway in-process backend.
func (s *Session) UseMemory() {
	s.swap(store.NewMemory())
}

// Gateway returns the active backend.
func (s *Session) Gateway() store.Gateway {
	return s.gateway
}

// Generation identifies the current backend instance. It changes whenever
// the session switches backends.
func (s *Session) Generation() int {
	return s.generation
}

// Engine returns a pipeline engine bound to the active backend.
func (s *Session) Engine() engine.Engine {
	return engine.New(s.gateway)
}

// Remote returns the active remote backend, or nil when the session is
// running on a local or memory backend.
func (s *Session) Remote() *store.Remote {
	if r, ok := s.gateway.(*store.Remote); ok {
		return r
	}
	return nil
}

// Authenticate exchanges the shared secret for a bearer token on the remote
// backend.
func (s *Session) Authenticate(ctx context.Context, secret string) error {
	r := s.Remote()
	if r == nil {
		return fmt.Errorf("authentication only applies to the remote backend")
	}
	return r.Authenticate(ctx, secret)
}

// Close releases the active backend.
func (s *Session) Close() error {
	if s.gateway == nil {
		return nil
	}
	err := s.gateway.Close()
	s.gateway = nil
	return err
}
