package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

func TestSessionSweeper_Sweep(t *testing.T) {
	f := newAuthFixture(t)
	_, session := f.register(t, "jane@example.com", "secret1")

	f.clock = f.clock.Add(2 * time.Hour)

	sweeper := NewSessionSweeper(f.svc, discardLogger())
	sweeper.sweep()

	if _, err := f.sessions.Get(context.Background(), session.SessionID); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("session survived sweep: %v", err)
	}
}

func TestSessionSweeper_StartStop(t *testing.T) {
	f := newAuthFixture(t)
	sweeper := NewSessionSweeper(f.svc, discardLogger())

	if err := sweeper.Start("not a schedule"); err == nil {
		t.Error("Start() with invalid schedule error = nil")
	}

	if err := sweeper.Start(""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sweeper.Stop()
}
