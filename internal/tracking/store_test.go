package tracking

import (
	"context"
	"testing"
	"time"

	"fieldops_backend/internal/leads/proximity"
	"fieldops_backend/platform/geo"

	"github.com/google/uuid"
)

func fixAt(lat, lng float64) proximity.Fix {
	return proximity.Fix{
		Position:   geo.Point{Lat: lat, Lng: lng},
		AccuracyM:  10,
		RecordedAt: time.Now(),
	}
}

func TestLatestFixWins(t *testing.T) {
	store := NewStore()
	userID := uuid.New()

	store.Record(userID, fixAt(40.0, -105.0))
	store.Record(userID, fixAt(40.1, -105.1))

	fix, ok := store.Latest(userID)
	if !ok {
		t.Fatalf("expected a stored fix")
	}
	if fix.Position.Lat != 40.1 {
		t.Fatalf("expected the newest sample, got %+v", fix.Position)
	}
}

func TestCurrentFixReturnsStoredImmediately(t *testing.T) {
	store := NewStore()
	userID := uuid.New()
	store.Record(userID, fixAt(40.0, -105.0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	fix, err := store.CurrentFix(ctx, userID)
	if err != nil {
		t.Fatalf("CurrentFix failed: %v", err)
	}
	if fix.Position.Lat != 40.0 {
		t.Fatalf("unexpected fix: %+v", fix.Position)
	}
}

func TestCurrentFixBlocksUntilSampleArrives(t *testing.T) {
	store := NewStore()
	userID := uuid.New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		store.Record(userID, fixAt(40.2, -105.2))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fix, err := store.CurrentFix(ctx, userID)
	if err != nil {
		t.Fatalf("CurrentFix failed: %v", err)
	}
	if fix.Position.Lat != 40.2 {
		t.Fatalf("unexpected fix: %+v", fix.Position)
	}
}

func TestCurrentFixTimesOut(t *testing.T) {
	store := NewStore()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := store.CurrentFix(ctx, uuid.New())
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestCurrentFixPerUserIsolation(t *testing.T) {
	store := NewStore()
	alice := uuid.New()
	bob := uuid.New()
	store.Record(alice, fixAt(40.0, -105.0))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := store.CurrentFix(ctx, bob); err == nil {
		t.Fatalf("another user's fix must not satisfy the wait")
	}
}
