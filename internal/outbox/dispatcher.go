package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sipelan-service/internal/events"
	"sipelan-service/internal/mailer"
	"sipelan-service/internal/model"
	"sipelan-service/internal/repository"
	"sipelan-service/internal/service"
)

const (
	stepNotificationSend = "notification_send"
	stepEventPublish     = "event_publish"
)

var (
	errNoPublisher       = errors.New("event publisher not configured")
	errAttemptsExhausted = errors.New("attempts exhausted by unfinished deliveries")
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	SendTimeout  time.Duration
	StaleAfter   time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Hour
	}
}

// Dispatcher delivers queued notification rows at least once.
type Dispatcher struct {
	store     repository.OutboxStore
	notifier  mailer.Notifier
	publisher events.Publisher
	logger    zerolog.Logger
	cfg       Config
	kick      chan struct{}
	now       func() time.Time
}

// NewDispatcher builds a dispatcher. publisher may be nil when no broker is configured.
func NewDispatcher(store repository.OutboxStore, notifier mailer.Notifier, publisher events.Publisher, logger zerolog.Logger, cfg Config) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.With().Str("component", "outbox").Logger(),
		cfg:       cfg,
		kick:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Kick asks for an immediate poll without blocking the caller.
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.logger.Info().Dur("poll_interval", d.cfg.PollInterval).Msg("outbox dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
		case <-d.kick:
		}
		d.drain(ctx)
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, err := d.ProcessOnce(ctx)
		if err != nil {
			d.logger.Error().Err(err).Msg("outbox poll failed")
			return
		}
		if processed < d.cfg.BatchSize {
			return
		}
	}
}

// ProcessOnce claims one batch of due messages and tries each of them.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (int, error) {
	now := d.now()
	messages, err := d.store.ClaimDueOutbox(ctx, now, now.Add(-d.cfg.StaleAfter), d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}

	for i := range messages {
		d.handle(ctx, messages[i])
	}
	return len(messages), nil
}

func (d *Dispatcher) handle(ctx context.Context, msg model.OutboxMessage) {
	if msg.Attempts >= d.cfg.MaxAttempts {
		d.giveUp(ctx, msg, errAttemptsExhausted)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err := d.deliver(sendCtx, msg)
	cancel()

	if err == nil {
		if markErr := d.store.MarkOutboxSent(ctx, msg.ID, d.now()); markErr != nil {
			d.logger.Error().Err(markErr).Str("outbox_id", msg.ID.String()).Msg("mark outbox sent failed")
		}
		return
	}

	attempts := msg.Attempts + 1
	failed := attempts >= d.cfg.MaxAttempts || errors.Is(err, errNoPublisher)
	step := stepNotificationSend
	if msg.Kind == model.OutboxKindEvent {
		step = stepEventPublish
	}
	complaintID := uuid.Nil
	if msg.ComplaintID != nil {
		complaintID = *msg.ComplaintID
	}
	service.RecordAuxiliaryFailure(d.logger, step, complaintID, err)

	update := repository.OutboxRetry{
		Attempts:      attempts,
		NextAttemptAt: d.now().Add(Backoff(attempts, d.cfg.BaseBackoff, d.cfg.MaxBackoff)),
		LastError:     err.Error(),
		Failed:        failed,
	}
	if markErr := d.store.MarkOutboxRetry(ctx, msg.ID, update); markErr != nil {
		d.logger.Error().Err(markErr).Str("outbox_id", msg.ID.String()).Msg("mark outbox retry failed")
		return
	}
	if failed {
		d.logger.Error().
			Str("outbox_id", msg.ID.String()).
			Str("kind", string(msg.Kind)).
			Int("attempts", attempts).
			Msg("outbox message given up")
	}
}

// giveUp fails a reclaimed message without another delivery try.
func (d *Dispatcher) giveUp(ctx context.Context, msg model.OutboxMessage, cause error) {
	update := repository.OutboxRetry{
		Attempts:      msg.Attempts,
		NextAttemptAt: d.now(),
		LastError:     cause.Error(),
		Failed:        true,
	}
	if err := d.store.MarkOutboxRetry(ctx, msg.ID, update); err != nil {
		d.logger.Error().Err(err).Str("outbox_id", msg.ID.String()).Msg("mark outbox retry failed")
		return
	}
	d.logger.Error().
		Str("outbox_id", msg.ID.String()).
		Str("kind", string(msg.Kind)).
		Int("attempts", msg.Attempts).
		Msg("outbox message given up")
}

func (d *Dispatcher) deliver(ctx context.Context, msg model.OutboxMessage) error {
	switch msg.Kind {
	case model.OutboxKindEmail:
		var payload model.EmailPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		return d.notifier.Send(ctx, msg.Recipient, msg.Subject, payload.HTML)
	case model.OutboxKindEvent:
		if d.publisher == nil {
			return errNoPublisher
		}
		var payload model.EventPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		return d.publisher.Publish(ctx, payload)
	default:
		return fmt.Errorf("unknown outbox kind %q", msg.Kind)
	}
}

// Backoff is base * 2^(attempt-1), capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
