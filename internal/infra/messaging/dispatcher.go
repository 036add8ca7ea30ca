package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront-checkout/internal/infra/repository"
	"storefront-checkout/internal/pkg/clock"

	"github.com/google/uuid"
)

const (
	defaultLease       = time.Minute
	defaultMaxAttempts = 10
	maxRetryDelay      = 5 * time.Minute
)

type JobStore interface {
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]repository.NotificationJob, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time, maxAttempts int) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, messageID string, body []byte) error
}

// Dispatcher drains notification_jobs to the broker. Delivery is at least once.
type Dispatcher struct {
	store       JobStore
	pub         EventPublisher
	clock       clock.Clock
	interval    time.Duration
	batchSize   int
	lease       time.Duration
	maxAttempts int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(store JobStore, pub EventPublisher, clk clock.Clock, interval time.Duration, batchSize int) *Dispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		store:       store,
		pub:         pub,
		clock:       clk,
		interval:    interval,
		batchSize:   batchSize,
		lease:       defaultLease,
		maxAttempts: defaultMaxAttempts,
	}
}

func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("outbox dispatch failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce publishes one batch and returns how many jobs were sent.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := d.clock.Now()
	jobs, err := d.store.ClaimDue(ctx, now, d.batchSize, d.lease)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, job := range jobs {
		if err := d.pub.Publish(ctx, job.Topic, job.ID.String(), job.Payload); err != nil {
			slog.Warn("outbox publish failed",
				"job_id", job.ID.String(),
				"topic", job.Topic,
				"attempts", job.Attempts+1,
				"error", err.Error())
			if merr := d.store.MarkFailed(ctx, job.ID, err.Error(), now.Add(retryDelay(job.Attempts, d.interval)), d.maxAttempts); merr != nil {
				return sent, merr
			}
			continue
		}
		if err := d.store.MarkSent(ctx, job.ID); err != nil {
			return sent, err
		}
		sent++
	}

	if sent > 0 {
		slog.Info("outbox dispatched", "sent", sent, "claimed", len(jobs))
	}
	return sent, nil
}

func retryDelay(attempts int, base time.Duration) time.Duration {
	if attempts > 16 {
		return maxRetryDelay
	}
	delay := base * time.Duration(1<<attempts)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}
