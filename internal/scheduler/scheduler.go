// Package scheduler turns wall-clock time into queued trigger jobs. The
// cadence is decoupled from execution: a slow or failed run never blocks
// the next tick.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hyre/internal/queue"
)

// Job names handled by the transition workers.
const (
	JobActivateDue = "booking.activate_due"
	JobCompleteDue = "booking.complete_due"
)

// Enqueuer pushes trigger jobs onto the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts queue.Options) error
}

// TriggerPayload is the body of a scheduler trigger job.
type TriggerPayload struct {
	TriggeredAt time.Time `json:"triggered_at"`
}

// Scheduler enqueues the two status-transition triggers on a fixed cadence.
type Scheduler struct {
	queue    Enqueuer
	interval time.Duration
	attempts int
	backoff  time.Duration
}

// New creates a new Scheduler.
func New(q Enqueuer, interval time.Duration, attempts int, backoff time.Duration) *Scheduler {
	return &Scheduler{
		queue:    q,
		interval: interval,
		attempts: attempts,
		backoff:  backoff,
	}
}

// Run ticks until ctx is cancelled, enqueueing both triggers on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			s.trigger(ctx, JobActivateDue, tick)
			s.trigger(ctx, JobCompleteDue, tick)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, name string, tick time.Time) {
	// Job id carries the trigger type and tick so duplicate enqueues within
	// one tick collapse at the queue layer.
	jobID := fmt.Sprintf("%s:%d:%s", name, tick.Unix(), uuid.New().String()[:6])

	err := s.queue.Enqueue(ctx, name, TriggerPayload{TriggeredAt: tick}, queue.Options{
		JobID:    jobID,
		Attempts: s.attempts,
		Backoff:  s.backoff,
	})
	if err != nil {
		log.Printf("[SCHEDULER] enqueue %s failed: %v", name, err)
	}
}
