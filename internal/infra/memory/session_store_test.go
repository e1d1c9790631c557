package memory

import (
	"testing"

	"studyhub/internal/app"
	"studyhub/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession("session-1", sampleQuiz("quiz-1", domain.AudienceAll))
	store.Save(session)
	got, ok := store.Get("session-1")
	if !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one live session, got %d", store.Len())
	}

	store.Delete("session-1")
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected session removed")
	}
}
