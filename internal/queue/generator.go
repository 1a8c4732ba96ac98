package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"resume-hub/internal/shared/telemetry"
)

// Generator schedules renders by queueing them for a separate worker
// process. It satisfies the same contract as the in-process engine: Enqueue
// never blocks the caller and never fails the request. The record stays
// pending until a worker claims it, so a lost message is recoverable via
// regenerate.
type Generator struct {
	Client  Client
	Timeout time.Duration
}

// Enqueue sends the render job in the background.
func (g *Generator) Enqueue(ownerID, recordID string) {
	msg := Message{
		RecordID:   recordID,
		OwnerID:    ownerID,
		RequestID:  uuid.NewString(),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := g.Client.Send(ctx, msg); err != nil {
			telemetry.Error("queue.send_failed", map[string]any{
				"owner_id":   ownerID,
				"record_id":  recordID,
				"request_id": msg.RequestID,
				"error":      err.Error(),
			})
		}
	}()
}
