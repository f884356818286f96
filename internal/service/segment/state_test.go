package segment

import (
	"errors"
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("sess-1")

	if lc.State() != StateActive {
		t.Errorf("expected StateActive, got %v", lc.State())
	}
	if lc.SessionId() != "sess-1" {
		t.Errorf("expected sess-1, got %v", lc.SessionId())
	}
	if lc.IsClosed() {
		t.Error("expected IsClosed to be false")
	}
}

func TestLifecycle_AdmitAndEmitWhileActive(t *testing.T) {
	lc := NewLifecycle("sess-1")

	for i := 0; i < 3; i++ {
		if err := lc.Admit(); err != nil {
			t.Fatalf("admit %d: unexpected error: %v", i, err)
		}
		if err := lc.Emit(); err != nil {
			t.Fatalf("emit %d: unexpected error: %v", i, err)
		}
	}

	admitted, emitted, discarded := lc.Stats()
	if admitted != 3 || emitted != 3 || discarded != 0 {
		t.Errorf("unexpected stats %d/%d/%d", admitted, emitted, discarded)
	}
}

func TestLifecycle_ResultAfterCloseIsDiscarded(t *testing.T) {
	lc := NewLifecycle("sess-1")

	if err := lc.Admit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// client disconnects while inference is running
	if !lc.Close() {
		t.Fatal("expected first Close to report true")
	}

	if err := lc.Emit(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := lc.Admit(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed on admit, got %v", err)
	}

	_, emitted, discarded := lc.Stats()
	if emitted != 0 || discarded != 1 {
		t.Errorf("expected 0 emitted / 1 discarded, got %d/%d", emitted, discarded)
	}
}

func TestLifecycle_CloseIsIdempotent(t *testing.T) {
	lc := NewLifecycle("sess-1")

	if !lc.Close() {
		t.Error("expected true on first close")
	}
	if lc.Close() {
		t.Error("expected false on second close")
	}
	if lc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateActive, "ACTIVE"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestLifecycle_ConcurrentCloseAndEmit(t *testing.T) {
	lc := NewLifecycle("sess-1")
	var wg sync.WaitGroup
	closes := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			closes <- lc.Close()
		}()
		go func() {
			defer wg.Done()
			_ = lc.Emit()
		}()
	}
	wg.Wait()
	close(closes)

	wins := 0
	for c := range closes {
		if c {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one successful close, got %d", wins)
	}
	_, emitted, discarded := lc.Stats()
	if emitted+discarded != 10 {
		t.Errorf("expected 10 emit attempts accounted for, got %d", emitted+discarded)
	}
}
