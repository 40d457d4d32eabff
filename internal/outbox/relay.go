package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codedeck/codedeck-backend/internal/events"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// Handler consumes one committed domain event. Handlers must be idempotent:
// the relay delivers at least once.
type Handler func(ctx context.Context, evt *events.Envelope) error

// RelayConfig tunes the dispatcher. Zero values fall back to defaults.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryDelay   time.Duration
	Concurrency  int
}

// Relay decouples "durably recorded" from "delivered": write-side services
// commit, then nudge the relay, which drains undispatched records from the
// outbox table and hands them to registered handlers. The poll ticker also
// picks up records left behind by a crash between commit and notify, so
// nothing is silently dropped.
//
// Records within one drain pass are grouped by lesson and each group is
// applied strictly in record order; groups for different lessons run
// concurrently. That preserves the only ordering the projector needs
// (per-lesson commit order) without serializing unrelated lessons.
type Relay struct {
	repo     repos.OutboxRepo
	log      *logger.Logger
	cfg      RelayConfig
	handlers map[string][]Handler
	notify   chan struct{}
}

func NewRelay(repo repos.OutboxRepo, baseLog *logger.Logger, cfg RelayConfig) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Relay{
		repo:     repo,
		log:      baseLog.With("service", "OutboxRelay"),
		cfg:      cfg,
		handlers: make(map[string][]Handler),
		notify:   make(chan struct{}, 1),
	}
}

// Register adds a handler for an event type. Call before Start.
func (r *Relay) Register(eventType string, h Handler) {
	if h == nil {
		return
	}
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

// Notify nudges the dispatcher after a commit. Non-blocking; a pending nudge
// already covers any number of commits.
func (r *Relay) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Start runs the dispatcher loop until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.notify:
			case <-ticker.C:
			}
			if err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("outbox drain pass failed, will retry on next tick", "error", err)
			}
		}
	}()
}

// DrainOnce dispatches every currently undispatched record. Exported so the
// rebuild path and tests can force a synchronous pass.
func (r *Relay) DrainOnce(ctx context.Context) error {
	for {
		recs, err := r.repo.ListUndispatched(ctx, nil, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}

		groups, order := groupByLesson(recs)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Concurrency)
		for _, lessonID := range order {
			group := groups[lessonID]
			g.Go(func() error {
				for _, rec := range group {
					if err := r.dispatch(gctx, rec); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if len(recs) < r.cfg.BatchSize {
			return nil
		}
	}
}

// dispatch delivers one record, retrying handler failures with a linear
// backoff. A record whose handlers keep failing is marked dispatched anyway
// after an error log: one poisoned event must not wedge the whole stream, and
// the admin rebuild is the reconciliation path for whatever it skipped.
// Errors from the store itself propagate so the pass can be retried wholesale.
func (r *Relay) dispatch(ctx context.Context, rec *types.OutboxRecord) error {
	evt := &events.Envelope{
		Type:       rec.EventType,
		LessonID:   rec.LessonID,
		Payload:    json.RawMessage(rec.Payload),
		OccurredAt: rec.CreatedAt,
	}

	handlers := r.handlers[rec.EventType]
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		lastErr = nil
		for _, h := range handlers {
			if err := h(ctx, evt); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			break
		}
		if attempt < r.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * r.cfg.RetryDelay):
			}
		}
	}
	if lastErr != nil {
		// A cancelled context is shutdown racing the drain, not a poisoned
		// event. Leave the record undispatched so the next poll redelivers it.
		if ctx.Err() != nil || errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		r.log.Error("outbox event exhausted retries, skipping",
			"event_type", rec.EventType,
			"event_id", rec.EventID,
			"lesson_id", rec.LessonID,
			"attempts", r.cfg.MaxAttempts,
			"error", lastErr,
		)
	}
	return r.repo.MarkDispatched(ctx, nil, []uint64{rec.ID}, time.Now().UTC())
}

func groupByLesson(recs []*types.OutboxRecord) (map[uuid.UUID][]*types.OutboxRecord, []uuid.UUID) {
	groups := make(map[uuid.UUID][]*types.OutboxRecord)
	var order []uuid.UUID
	for _, rec := range recs {
		if _, ok := groups[rec.LessonID]; !ok {
			order = append(order, rec.LessonID)
		}
		groups[rec.LessonID] = append(groups[rec.LessonID], rec)
	}
	return groups, order
}
