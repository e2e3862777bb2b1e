package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gatepass/internal/metrics"

	"github.com/google/uuid"
)

// SendFunc is the bound send operation carried by a task.
type SendFunc func() error

// Task is one queued unit of email work. Tasks live in process memory
// only; queued and in-flight mail is lost on restart.
type Task struct {
	ID             string
	RegistrationID int64
	TicketNumber   string
	To             string
	Send           SendFunc
	Attempts       int
	CreatedAt      time.Time

	// OnSent and OnFailed are invoked from the worker goroutine, once
	// per task, after delivery succeeds or fails permanently.
	OnSent   func(*Task)
	OnFailed func(*Task, error)

	notBefore time.Time
}

type QueueConfig struct {
	// SendDelay is the fixed pause between tasks, respecting the
	// outbound rate limit of the mail relay.
	SendDelay   time.Duration
	SendTimeout time.Duration
	MaxAttempts int
	Backoff     []time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		SendDelay:   1 * time.Second,
		SendTimeout: 30 * time.Second,
		MaxAttempts: 5,
		Backoff:     []time.Duration{1 * time.Second, 3 * time.Second, 10 * time.Second, 30 * time.Second},
	}
}

// Queue drains email tasks through a single worker, one at a time.
// Enqueue never blocks the caller; delivery happens after the request
// that triggered it has already been answered.
type Queue struct {
	cfg QueueConfig

	mu    sync.Mutex
	tasks []*Task

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewQueue(cfg QueueConfig) *Queue {
	def := DefaultQueueConfig()
	if cfg.SendDelay <= 0 {
		cfg.SendDelay = def.SendDelay
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = def.Backoff
	}

	return &Queue{
		cfg:  cfg,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (q *Queue) Start() {
	go q.run()
}

// Enqueue appends a task and returns it as the caller's handle.
func (q *Queue) Enqueue(t *Task) *Task {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now()

	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.EmailQueueDepth.Set(float64(depth))
	q.notify()
	return t
}

// requeueFront puts a retried task back at the head of the list, so
// retries take priority over new work.
func (q *Queue) requeueFront(t *Task, delay time.Duration) {
	t.notBefore = time.Now().Add(delay)

	q.mu.Lock()
	q.tasks = append([]*Task{t}, q.tasks...)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.EmailQueueDepth.Set(float64(depth))
	q.notify()
}

func (q *Queue) pop() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	metrics.EmailQueueDepth.Set(float64(len(q.tasks)))
	return t
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Shutdown stops the worker after the current send finishes. Queued
// tasks are dropped; this is the documented in-memory limitation.
func (q *Queue) Shutdown(ctx context.Context) error {
	close(q.stop)
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		t := q.pop()
		if t == nil {
			select {
			case <-q.wake:
				continue
			case <-q.stop:
				return
			}
		}

		// A retried head task waits out its backoff before sending.
		if wait := time.Until(t.notBefore); wait > 0 {
			select {
			case <-time.After(wait):
			case <-q.stop:
				return
			}
		}

		t.Attempts++
		err := q.sendWithTimeout(t)

		switch {
		case err == nil:
			metrics.EmailsSent.Inc()
			slog.Info("Email delivered", "task_id", t.ID, "to", t.To, "attempts", t.Attempts)
			if t.OnSent != nil {
				t.OnSent(t)
			}

		case Classify(err) == FailureRetryable && t.Attempts < q.cfg.MaxAttempts:
			metrics.EmailRetries.Inc()
			delay := q.backoffFor(t.Attempts)
			slog.Warn("Email send failed, will retry",
				"task_id", t.ID, "to", t.To, "attempt", t.Attempts,
				"retry_in", delay, "error", err)
			q.requeueFront(t, delay)

		default:
			metrics.EmailsFailed.Inc()
			slog.Error("Email send failed permanently",
				"task_id", t.ID, "to", t.To, "attempts", t.Attempts, "error", err)
			if t.OnFailed != nil {
				t.OnFailed(t, err)
			}
		}

		select {
		case <-time.After(q.cfg.SendDelay):
		case <-q.stop:
			return
		}
	}
}

func (q *Queue) backoffFor(attempt int) time.Duration {
	idx := attempt - 1
	if idx >= len(q.cfg.Backoff) {
		idx = len(q.cfg.Backoff) - 1
	}
	return q.cfg.Backoff[idx]
}

func (q *Queue) sendWithTimeout(t *Task) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- t.Send()
	}()

	timer := time.NewTimer(q.cfg.SendTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.C:
		return fmt.Errorf("send timeout after %s", q.cfg.SendTimeout)
	}
}
