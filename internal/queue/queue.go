// Package queue implements the redis-backed job queue: at-least-once
// delivery, dedup by job id at enqueue time, bounded worker concurrency and
// per-job retries with exponential backoff.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobsKey     = "queue:jobs"
	deadKey     = "queue:dead"
	dedupPrefix = "queue:dedup:"

	popTimeout = 5 * time.Second
)

// Handler processes one job payload. A returned error triggers a retry.
type Handler func(ctx context.Context, payload []byte) error

// Options control enqueue behaviour for a single job.
type Options struct {
	// JobID dedups duplicate enqueues: a job id seen within the dedup TTL
	// is dropped at the queue layer.
	JobID string

	// Attempts is the maximum number of delivery attempts (default 3).
	Attempts int

	// Backoff is the base delay before the first retry; it doubles per
	// attempt (default 1s).
	Backoff time.Duration
}

type job struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	BackoffMS   int64           `json:"backoff_ms"`
}

// Queue is a redis-backed job queue with named handlers.
type Queue struct {
	client   *redis.Client
	dedupTTL time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a new Queue. dedupTTL bounds how long a job id suppresses
// duplicate enqueues.
func New(client *redis.Client, dedupTTL time.Duration) *Queue {
	return &Queue{
		client:   client,
		dedupTTL: dedupTTL,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job name. Call before Run.
func (q *Queue) Register(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Enqueue pushes a job. When Options.JobID is set, a duplicate enqueue
// within the dedup TTL is silently dropped.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, opts Options) error {
	if opts.JobID != "" {
		ok, err := q.client.SetNX(ctx, dedupPrefix+opts.JobID, "1", q.dedupTTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			// Duplicate within the same tick.
			return nil
		}
	}

	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	envelope, err := json.Marshal(job{
		ID:          opts.JobID,
		Name:        name,
		Payload:     body,
		Attempt:     0,
		MaxAttempts: opts.Attempts,
		BackoffMS:   opts.Backoff.Milliseconds(),
	})
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, jobsKey, envelope).Err()
}

// Run starts the worker pool and blocks until ctx is cancelled. Jobs either
// run to completion or fail and are retried wholesale; handlers must be
// safe to re-run from scratch.
func (q *Queue) Run(ctx context.Context, concurrency int) {
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker(ctx)
		}()
	}
	wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := q.client.BRPop(ctx, popTimeout, jobsKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("[QUEUE] pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [key, value].
		var j job
		if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
			log.Printf("[QUEUE] malformed job dropped: %v", err)
			continue
		}

		q.process(ctx, j)
	}
}

func (q *Queue) process(ctx context.Context, j job) {
	q.mu.RLock()
	handler, ok := q.handlers[j.Name]
	q.mu.RUnlock()

	if !ok {
		log.Printf("[QUEUE] no handler for job %q (id=%s), dead-lettering", j.Name, j.ID)
		q.deadLetter(ctx, j)
		return
	}

	err := handler(ctx, j.Payload)
	if err == nil {
		return
	}

	j.Attempt++
	if j.Attempt >= j.MaxAttempts {
		log.Printf("[QUEUE] job %s (id=%s) exhausted %d attempt(s): %v", j.Name, j.ID, j.MaxAttempts, err)
		q.deadLetter(ctx, j)
		return
	}

	// Exponential backoff before the redelivery.
	delay := time.Duration(j.BackoffMS) * time.Millisecond << (j.Attempt - 1)
	log.Printf("[QUEUE] job %s (id=%s) attempt %d/%d failed, retrying in %s: %v",
		j.Name, j.ID, j.Attempt, j.MaxAttempts, delay, err)

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	envelope, merr := json.Marshal(j)
	if merr != nil {
		log.Printf("[QUEUE] requeue marshal failed for job %s: %v", j.ID, merr)
		return
	}
	if perr := q.client.LPush(ctx, jobsKey, envelope).Err(); perr != nil {
		log.Printf("[QUEUE] requeue failed for job %s: %v", j.ID, perr)
	}
}

// deadLetter parks a job for operator inspection; there is no live user
// session to surface the failure to.
func (q *Queue) deadLetter(ctx context.Context, j job) {
	envelope, err := json.Marshal(j)
	if err != nil {
		return
	}
	if err := q.client.LPush(ctx, deadKey, envelope).Err(); err != nil {
		log.Printf("[QUEUE] dead-letter push failed for job %s: %v", j.ID, err)
	}
}
