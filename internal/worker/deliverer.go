package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
	"github.com/Wissididom/twitch-sus-user-logger/internal/domain"
	"github.com/Wissididom/twitch-sus-user-logger/internal/metrics"
	"github.com/Wissididom/twitch-sus-user-logger/internal/store"
)

const (
	DefaultDeliveryTimeout = 10 * time.Second

	rateLimitPollInterval = 100 * time.Millisecond
)

var errRateLimited = errors.New("rate limit not released before delivery timeout")

// Sender executes a message against a Discord destination.
type Sender interface {
	Execute(ctx context.Context, dest discord.Destination, msg discord.Message) (*discord.Result, error)
}

// Recorder persists delivery attempts.
type Recorder interface {
	RecordDeliveryAttempt(ctx context.Context, rec store.DeliveryAttemptRecord) error
}

// Breaker guards a destination that keeps failing.
type Breaker interface {
	AllowRequest(ctx context.Context, destination string) (string, bool)
	RecordSuccess(ctx context.Context, destination string)
	RecordFailure(ctx context.Context, destination string)
}

// Limiter paces deliveries to a destination.
type Limiter interface {
	Allow(ctx context.Context, destination string, limit int) bool
}

// Notifier receives every delivery outcome as it happens.
type Notifier interface {
	Publish(a domain.DeliveryAttempt)
}

// Deliverer forwards jobs to Discord exactly once each. Failures are logged,
// counted and recorded, never retried.
type Deliverer struct {
	sender    Sender
	recorder  Recorder
	breaker   Breaker
	limiter   Limiter
	notifier  Notifier
	rateLimit int
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Deliverer.
type Option func(*Deliverer)

// WithRecorder records every attempt, including skipped ones.
func WithRecorder(r Recorder) Option {
	return func(d *Deliverer) { d.recorder = r }
}

// WithCircuitBreaker skips deliveries while the destination's circuit is open.
func WithCircuitBreaker(b Breaker) Option {
	return func(d *Deliverer) { d.breaker = b }
}

// WithRateLimiter holds deliveries to at most limit per second.
func WithRateLimiter(l Limiter, limit int) Option {
	return func(d *Deliverer) {
		d.limiter = l
		d.rateLimit = limit
	}
}

// WithNotifier publishes every outcome, e.g. to a live feed.
func WithNotifier(n Notifier) Option {
	return func(d *Deliverer) { d.notifier = n }
}

// WithTimeout bounds each delivery, including time spent waiting on the rate limiter.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Deliverer) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDeliverer creates a deliverer sending through sender.
func NewDeliverer(sender Sender, logger *slog.Logger, opts ...Option) *Deliverer {
	d := &Deliverer{
		sender:  sender,
		timeout: DefaultDeliveryTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver sends the job's message and records the outcome.
func (d *Deliverer) Deliver(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	destination := job.Destination.Key()

	if d.breaker != nil {
		if state, allowed := d.breaker.AllowRequest(ctx, destination); !allowed {
			d.finish(ctx, job, attempt{
				status: domain.DeliveryStatusSkipped,
				errMsg: "circuit breaker " + state,
			})
			return
		}
	}

	if err := d.waitForSlot(ctx, destination); err != nil {
		d.finish(ctx, job, attempt{
			status: domain.DeliveryStatusSkipped,
			errMsg: err.Error(),
		})
		return
	}

	start := time.Now()
	result, err := d.sender.Execute(ctx, job.Destination, job.Message)
	elapsed := time.Since(start)
	metrics.DeliveryDuration.Observe(elapsed.Seconds())

	a := attempt{
		status:  domain.DeliveryStatusSuccess,
		elapsed: elapsed,
		result:  result,
	}
	if err != nil {
		a.status = domain.DeliveryStatusFailed
		a.errMsg = err.Error()
	}

	if d.breaker != nil {
		bctx := context.WithoutCancel(ctx)
		if a.status == domain.DeliveryStatusSuccess {
			d.breaker.RecordSuccess(bctx, destination)
		} else {
			d.breaker.RecordFailure(bctx, destination)
		}
	}

	d.finish(ctx, job, a)
}

func (d *Deliverer) waitForSlot(ctx context.Context, destination string) error {
	if d.limiter == nil || d.rateLimit <= 0 {
		return nil
	}

	ticker := time.NewTicker(rateLimitPollInterval)
	defer ticker.Stop()

	for {
		// The limiter fails open, so it must not be asked with an expired context.
		if ctx.Err() != nil {
			return errRateLimited
		}
		if d.limiter.Allow(ctx, destination, d.rateLimit) {
			return nil
		}
		select {
		case <-ctx.Done():
			return errRateLimited
		case <-ticker.C:
		}
	}
}

type attempt struct {
	status  string
	elapsed time.Duration
	result  *discord.Result
	errMsg  string
}

// finish logs, counts and records a delivery outcome. The record is written
// even when the delivery context has expired.
func (d *Deliverer) finish(ctx context.Context, job Job, a attempt) {
	metrics.DeliveriesTotal.WithLabelValues(a.status).Inc()

	destination := job.Destination.Key()
	rec := store.DeliveryAttemptRecord{
		ID:             job.ID,
		MessageID:      job.MessageID,
		EventType:      job.EventType,
		BroadcasterID:  job.BroadcasterID,
		UserID:         job.UserID,
		Destination:    destination,
		Status:         a.status,
		ResponseTimeMs: int(a.elapsed.Milliseconds()),
		ErrorMessage:   a.errMsg,
	}
	if a.result != nil {
		rec.HTTPStatusCode = &a.result.StatusCode
		rec.ResponseBody = a.result.Body
	}

	if d.recorder != nil {
		if err := d.recorder.RecordDeliveryAttempt(context.WithoutCancel(ctx), rec); err != nil {
			d.logger.Error("failed to record delivery attempt",
				"error", err,
				"delivery_id", job.ID,
				"message_id", job.MessageID,
			)
		}
	}

	if d.notifier != nil {
		d.notifier.Publish(attemptFromRecord(rec, time.Now()))
	}

	switch a.status {
	case domain.DeliveryStatusSuccess:
		d.logger.Info("delivery successful",
			"delivery_id", job.ID,
			"message_id", job.MessageID,
			"destination", destination,
			"status_code", rec.HTTPStatusCode,
			"response_time_ms", rec.ResponseTimeMs,
		)
	case domain.DeliveryStatusSkipped:
		d.logger.Warn("delivery skipped",
			"delivery_id", job.ID,
			"message_id", job.MessageID,
			"destination", destination,
			"reason", a.errMsg,
		)
	default:
		d.logger.Error("delivery failed",
			"delivery_id", job.ID,
			"message_id", job.MessageID,
			"destination", destination,
			"error", a.errMsg,
			"status_code", rec.HTTPStatusCode,
			"response_time_ms", rec.ResponseTimeMs,
		)
	}
}

func attemptFromRecord(rec store.DeliveryAttemptRecord, at time.Time) domain.DeliveryAttempt {
	a := domain.DeliveryAttempt{
		ID:             rec.ID,
		MessageID:      rec.MessageID,
		EventType:      rec.EventType,
		BroadcasterID:  rec.BroadcasterID,
		UserID:         rec.UserID,
		Destination:    rec.Destination,
		Status:         rec.Status,
		HTTPStatusCode: rec.HTTPStatusCode,
		ResponseTimeMs: &rec.ResponseTimeMs,
		CreatedAt:      at,
	}
	if rec.ResponseBody != "" {
		a.ResponseBody = &rec.ResponseBody
	}
	if rec.ErrorMessage != "" {
		a.ErrorMessage = &rec.ErrorMessage
	}
	return a
}
