package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/matryer/is"
)

func newTestWorker(handler JobHandler) *Worker {
	return New(Config{
		URL:     "wss://example.com",
		Token:   "test-token",
		Handler: handler,
	}, slog.Default())
}

func TestWorker_New(t *testing.T) {
	is := is.New(t)

	worker := newTestWorker(nil)

	is.Equal(worker.url, "wss://example.com")
	is.Equal(worker.token, "test-token")
	is.True(worker.in != nil)
	is.True(worker.out != nil)
}

func TestWorker_IsConnected(t *testing.T) {
	is := is.New(t)
	worker := newTestWorker(nil)

	is.True(!worker.IsConnected()) // starts disconnected

	worker.setConnected(true)
	is.True(worker.IsConnected())

	worker.setConnected(false)
	is.True(!worker.IsConnected())
}

func TestWorker_HandleSignal_Ping(t *testing.T) {
	worker := newTestWorker(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker.handleSignal(ctx, &Signal{
		Type: SignalTypePing,
		Data: map[string]any{"id": "test-ping"},
	})

	select {
	case cmd := <-worker.out:
		if cmd.Type != SignalTypePong {
			t.Errorf("expected pong response, got %s", cmd.Type)
		}
		if cmd.Data["id"] != "test-ping" {
			t.Errorf("expected pong to echo ping data, got %v", cmd.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected pong response within 100ms")
	}
}

func TestWorker_HandleSignal_StartJobRunsHandler(t *testing.T) {
	is := is.New(t)

	roomCh := make(chan string, 1)
	worker := newTestWorker(func(ctx context.Context, roomName string) error {
		roomCh <- roomName
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker.handleSignal(ctx, &Signal{
		Type: SignalTypeStartJob,
		Data: map[string]any{"room": "demo-room"},
	})

	select {
	case room := <-roomCh:
		is.Equal(room, "demo-room")
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	// jobStarted then jobFinished are reported back.
	started := <-worker.out
	is.Equal(started.Type, CommandTypeJobStarted)

	select {
	case finished := <-worker.out:
		is.Equal(finished.Type, CommandTypeJobFinished)
		is.Equal(finished.Data["room"], "demo-room")
	case <-time.After(time.Second):
		t.Fatal("jobFinished was not reported")
	}
}

func TestWorker_HandleSignal_StartJobReportsError(t *testing.T) {
	is := is.New(t)

	worker := newTestWorker(func(ctx context.Context, roomName string) error {
		return errors.New("room unavailable")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker.handleSignal(ctx, &Signal{
		Type: SignalTypeStartJob,
		Data: map[string]any{"room": "demo-room"},
	})

	<-worker.out // jobStarted
	select {
	case finished := <-worker.out:
		is.Equal(finished.Type, CommandTypeJobFinished)
		is.Equal(finished.Data["error"], "room unavailable")
	case <-time.After(time.Second):
		t.Fatal("jobFinished was not reported")
	}
}

func TestWorker_HandleSignal_StartJobWithoutRoom(t *testing.T) {
	worker := newTestWorker(func(ctx context.Context, roomName string) error {
		t.Error("handler should not run without a room name")
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker.handleSignal(ctx, &Signal{Type: SignalTypeStartJob})

	select {
	case cmd := <-worker.out:
		t.Errorf("no command expected, got %s", cmd.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWorker_HandleSignal_Unknown(t *testing.T) {
	worker := newTestWorker(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker.handleSignal(ctx, &Signal{
		Type: "unknownType",
		Data: map[string]any{"foo": "bar"},
	})

	select {
	case <-worker.out:
		t.Error("no response expected for unknown signal type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBackoffCalculation(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 10 * time.Second},  // capped at 10s
		{10, 10 * time.Second}, // still capped
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			worker := newTestWorker(nil)

			worker.mu.Lock()
			worker.backoffAttempt = tt.attempt - 1
			worker.mu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := worker.backoffDelay(ctx)
			duration := time.Since(start)

			if err != context.DeadlineExceeded {
				t.Errorf("expected context deadline exceeded, got %v", err)
			}
			if duration < 40*time.Millisecond {
				t.Errorf("backoff should have waited at least 40ms, waited %v", duration)
			}
		})
	}
}
