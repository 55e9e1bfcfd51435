package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewServiceHandle_RejectsDuplicates(t *testing.T) {
	m := newTestManager()

	h, err := m.NewServiceHandle("redis-health")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if _, err := m.NewServiceHandle("redis-health"); err == nil {
		t.Fatal("expected an error when registering the same service twice")
	}
}

func TestShutdown_WakesSleepers(t *testing.T) {
	m := newTestManager()
	h, err := m.NewServiceHandle("sleeper")
	if err != nil {
		t.Fatal(err)
	}

	result := make(chan error, 1)
	go func() {
		defer h.Close()
		result <- h.Sleep(time.Hour)
	}()

	m.Shutdown()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return after Shutdown")
	}

	if remaining := m.WaitWithTimeout(time.Second); len(remaining) != 0 {
		t.Errorf("expected every service to exit, still running: %v", remaining)
	}
}

func TestWaitWithTimeout_ReportsStragglers(t *testing.T) {
	m := newTestManager()
	stuck, _ := m.NewServiceHandle("b-stuck")
	other, _ := m.NewServiceHandle("a-stuck")
	defer stuck.Close()
	defer other.Close()

	remaining := m.WaitWithTimeout(20 * time.Millisecond)
	if len(remaining) != 2 || remaining[0] != "a-stuck" || remaining[1] != "b-stuck" {
		t.Errorf("expected sorted stragglers, got %v", remaining)
	}
}

func TestHandleSleep_CompletesNormally(t *testing.T) {
	m := newTestManager()
	h, _ := m.NewServiceHandle("short")
	defer h.Close()

	if err := h.Sleep(5 * time.Millisecond); err != nil {
		t.Errorf("expected nil after a full sleep, got %v", err)
	}
}

func TestHandleClose_IsIdempotent(t *testing.T) {
	m := newTestManager()
	h, _ := m.NewServiceHandle("twice")
	h.Close()
	h.Close()

	if remaining := m.WaitWithTimeout(time.Second); len(remaining) != 0 {
		t.Errorf("expected no stragglers, got %v", remaining)
	}
}
