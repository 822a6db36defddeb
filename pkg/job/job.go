// Package job manages the lifecycle of one agent assignment: the LiveKit
// room connection, its event stream, and coordinated shutdown with
// registered teardown hooks.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Job is a single agent assignment to a room.
type Job struct {
	ID       string
	RoomName string
	Context  *JobContext
}

// Config configures a new Job.
type Config struct {
	ID       string // generated when empty
	RoomName string
	Timeout  time.Duration // optional overall execution timeout
}

// New creates a Job and its lifecycle context.
func New(parentCtx context.Context, cfg Config) (*Job, error) {
	if cfg.RoomName == "" {
		return nil, fmt.Errorf("room name is required")
	}

	jobID := cfg.ID
	if jobID == "" {
		jobID = "job_" + uuid.NewString()
	}

	ctx := parentCtx
	if cfg.Timeout > 0 {
		// The JobContext's own cancel covers this context; no separate
		// CancelFunc needs to be retained here.
		ctx, _ = context.WithTimeout(parentCtx, cfg.Timeout) //nolint:govet
	}

	j := &Job{
		ID:       jobID,
		RoomName: cfg.RoomName,
		Context:  NewJobContext(ctx),
	}

	slog.Info("job created",
		slog.String("job_id", jobID),
		slog.String("room_name", cfg.RoomName))
	return j, nil
}

// Shutdown gracefully shuts down the job.
func (j *Job) Shutdown(reason string) {
	j.Context.Shutdown(reason)
}

// Wait blocks until the job ends and returns the context error.
func (j *Job) Wait() error {
	<-j.Context.Done()
	return j.Context.Err()
}

// IsActive reports whether the job is still running.
func (j *Job) IsActive() bool {
	return !j.Context.IsShutdown()
}
