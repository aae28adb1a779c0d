package circuitbreaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

func TestManager_GetReturnsSameInstanceForSameName(t *testing.T) {
	mgr := NewManager(gobreaker.Settings{})
	a := mgr.Get("tenant-a")
	b := mgr.Get("tenant-a")
	if a != b {
		t.Error("expected Get to return the same breaker instance for the same name")
	}
	if mgr.Get("tenant-b") == a {
		t.Error("expected distinct breakers for distinct names")
	}
}

func TestManager_ExecuteTripsAfterConsecutiveFailures(t *testing.T) {
	mgr := NewManager(gobreaker.Settings{
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	failing := func() (interface{}, error) { return nil, errors.New("connection refused") }

	if _, err := mgr.Execute("source-a", failing); err == nil {
		t.Fatal("expected the first failure to propagate")
	}
	if _, err := mgr.Execute("source-a", failing); err == nil {
		t.Fatal("expected the second failure to propagate")
	}

	_, err := mgr.Execute("source-a", func() (interface{}, error) { return "ok", nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected the breaker to be open after consecutive failures, got %v", err)
	}
}
