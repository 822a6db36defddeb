// Package worker connects to a dispatch server and runs the voice agent
// in whatever room each startJob signal names. The connection reconnects
// with exponential backoff; in-flight jobs survive a dropped dispatch
// connection.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Signal and command types exchanged with the dispatch server.
const (
	SignalTypePing     = "ping"
	SignalTypePong     = "pong"
	SignalTypeStartJob = "startJob"
	SignalTypeShutdown = "shutdown"

	CommandTypeJobStarted  = "jobStarted"
	CommandTypeJobFinished = "jobFinished"
)

// JobHandler runs one dispatched job in the named room. It blocks until
// the job ends; the returned error is reported back to the dispatcher.
type JobHandler func(ctx context.Context, roomName string) error

type Worker struct {
	url            string
	token          string
	wsClient       *WebSocketClient
	handler        JobHandler
	logger         *slog.Logger
	in             chan *Signal
	out            chan *Command
	jobs           sync.WaitGroup
	mu             sync.RWMutex
	connected      bool
	backoffAttempt int
}

type Config struct {
	URL     string
	Token   string
	Handler JobHandler
}

func New(config Config, logger *slog.Logger) *Worker {
	return &Worker{
		url:      config.URL,
		token:    config.Token,
		handler:  config.Handler,
		logger:   logger,
		in:       make(chan *Signal, 100),
		out:      make(chan *Command, 100),
		wsClient: NewWebSocketClient(config.URL, config.Token, logger),
	}
}

// Run maintains the dispatch connection until ctx is cancelled, then
// waits for in-flight jobs before returning.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting worker", slog.String("url", w.url))

	for {
		select {
		case <-ctx.Done():
			return w.shutdown()
		default:
			if err := w.connectAndRun(ctx); err != nil {
				w.logger.Error("dispatch connection failed", slog.String("error", err.Error()))

				if err := w.backoffDelay(ctx); err != nil {
					return w.shutdown()
				}
				continue
			}
		}
	}
}

func (w *Worker) connectAndRun(ctx context.Context) error {
	if err := w.wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := w.wsClient.Close(); err != nil {
			w.logger.Error("error closing dispatch connection", slog.String("error", err.Error()))
		}
	}()

	w.setConnected(true)
	defer w.setConnected(false)

	readCtx, readCancel := context.WithCancel(ctx)
	defer readCancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.readSignals(readCtx); err != nil {
			errCh <- fmt.Errorf("read signals: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.writeCommands(readCtx); err != nil {
			errCh <- fmt.Errorf("write commands: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.processSignals(readCtx)
	}()

	select {
	case err := <-errCh:
		readCancel()
		wg.Wait()
		return err
	case <-ctx.Done():
		readCancel()
		wg.Wait()
		return nil
	}
}

func (w *Worker) readSignals(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			signal, err := w.wsClient.ReadSignal(ctx)
			if err != nil {
				return err
			}

			select {
			case w.in <- signal:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (w *Worker) writeCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-w.out:
			if err := w.wsClient.WriteCommand(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-w.in:
			w.handleSignal(ctx, signal)
		}
	}
}

func (w *Worker) handleSignal(ctx context.Context, signal *Signal) {
	w.logger.Debug("processing signal", slog.String("type", signal.Type))

	switch signal.Type {
	case SignalTypePing:
		w.send(ctx, &Command{Type: SignalTypePong, Data: signal.Data})

	case SignalTypeStartJob:
		roomName, _ := signal.Data["room"].(string)
		if roomName == "" {
			w.logger.Warn("startJob signal without room name")
			return
		}
		w.startJob(ctx, roomName)

	case SignalTypeShutdown:
		w.logger.Info("shutdown signal received")

	default:
		w.logger.Warn("unknown signal type", slog.String("type", signal.Type))
	}
}

// startJob launches the handler for one room. Job errors are reported in
// the jobFinished command rather than ending the worker.
func (w *Worker) startJob(ctx context.Context, roomName string) {
	if w.handler == nil {
		w.logger.Error("no job handler configured", slog.String("room", roomName))
		return
	}

	w.logger.Info("job dispatched", slog.String("room", roomName))
	w.send(ctx, &Command{Type: CommandTypeJobStarted, Data: map[string]any{"room": roomName}})

	w.jobs.Add(1)
	go func() {
		defer w.jobs.Done()

		data := map[string]any{"room": roomName}
		if err := w.handler(ctx, roomName); err != nil {
			w.logger.Error("job failed",
				slog.String("room", roomName),
				slog.String("error", err.Error()))
			data["error"] = err.Error()
		}
		w.send(ctx, &Command{Type: CommandTypeJobFinished, Data: data})
	}()
}

func (w *Worker) send(ctx context.Context, cmd *Command) {
	select {
	case w.out <- cmd:
	case <-ctx.Done():
	default:
		w.logger.Warn("command buffer full, dropping", slog.String("type", cmd.Type))
	}
}

func (w *Worker) backoffDelay(ctx context.Context) error {
	w.mu.Lock()
	w.backoffAttempt++
	attempt := w.backoffAttempt
	w.mu.Unlock()

	// Exponential backoff: 1s, 2s, 4s, 8s, capped at 10s.
	delay := time.Duration(math.Min(math.Pow(2, float64(attempt-1)), 10)) * time.Second

	w.logger.Info("reconnecting with backoff",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) setConnected(connected bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if connected && !w.connected {
		w.backoffAttempt = 0
		w.logger.Info("worker connected")
	}
	w.connected = connected
}

func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Worker) shutdown() error {
	w.logger.Info("shutting down worker")
	w.jobs.Wait()

	if err := w.wsClient.Close(); err != nil {
		w.logger.Error("error closing dispatch connection", slog.String("error", err.Error()))
		return err
	}

	w.logger.Info("worker shutdown complete")
	return nil
}
