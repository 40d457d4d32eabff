package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/events"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// fakeOutboxRepo is an in-memory outbox table with the same dispatch
// bookkeeping as the real one.
type fakeOutboxRepo struct {
	mu     sync.Mutex
	nextID uint64
	recs   []*types.OutboxRecord
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{nextID: 1}
}

func (f *fakeOutboxRepo) add(eventType string, lessonID uuid.UUID, payload interface{}) *types.OutboxRecord {
	raw, _ := json.Marshal(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &types.OutboxRecord{
		ID:        f.nextID,
		EventID:   uuid.New(),
		EventType: eventType,
		LessonID:  lessonID,
		Payload:   datatypes.JSON(raw),
		CreatedAt: time.Now(),
	}
	f.nextID++
	f.recs = append(f.recs, rec)
	return rec
}

func (f *fakeOutboxRepo) Append(ctx context.Context, tx *gorm.DB, rec *types.OutboxRecord) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = f.nextID
	f.nextID++
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeOutboxRepo) ListUndispatched(ctx context.Context, tx *gorm.DB, limit int) ([]*types.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.OutboxRecord
	for _, r := range f.recs {
		if r.DispatchedAt == nil {
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkDispatched(ctx context.Context, tx *gorm.DB, ids []uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		for _, r := range f.recs {
			if r.ID == id {
				t := at
				r.DispatchedAt = &t
			}
		}
	}
	return nil
}

func (f *fakeOutboxRepo) CountUndispatched(ctx context.Context, tx *gorm.DB) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.recs {
		if r.DispatchedAt == nil {
			n++
		}
	}
	return n, nil
}

func newTestRelay(t *testing.T, repo *fakeOutboxRepo, cfg RelayConfig) *Relay {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewRelay(repo, log, cfg)
}

func TestDrainOnceDeliversAndMarksDispatched(t *testing.T) {
	repo := newFakeOutboxRepo()
	lessonID := uuid.New()
	repo.add(events.LessonCreated, lessonID, events.LessonPayload{LessonID: lessonID})
	repo.add(events.LessonUpdated, lessonID, events.LessonPayload{LessonID: lessonID})

	relay := newTestRelay(t, repo, RelayConfig{})
	var mu sync.Mutex
	var seen []string
	handler := func(ctx context.Context, evt *events.Envelope) error {
		mu.Lock()
		seen = append(seen, evt.Type)
		mu.Unlock()
		return nil
	}
	relay.Register(events.LessonCreated, handler)
	relay.Register(events.LessonUpdated, handler)

	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if len(seen) != 2 || seen[0] != events.LessonCreated || seen[1] != events.LessonUpdated {
		t.Fatalf("delivery order wrong: %v", seen)
	}
	if n, _ := repo.CountUndispatched(context.Background(), nil); n != 0 {
		t.Fatalf("records left undispatched: %d", n)
	}
}

func TestPerLessonOrderPreservedAcrossConcurrentGroups(t *testing.T) {
	repo := newFakeOutboxRepo()
	lessonA := uuid.New()
	lessonB := uuid.New()
	const perLesson = 20
	for i := 0; i < perLesson; i++ {
		repo.add(events.BlockCreated, lessonA, events.BlockReorderedPayload{LessonID: lessonA, OrderIndex: float64(i)})
		repo.add(events.BlockCreated, lessonB, events.BlockReorderedPayload{LessonID: lessonB, OrderIndex: float64(i)})
	}

	relay := newTestRelay(t, repo, RelayConfig{Concurrency: 4})
	var mu sync.Mutex
	perLessonSeen := map[uuid.UUID][]float64{}
	relay.Register(events.BlockCreated, func(ctx context.Context, evt *events.Envelope) error {
		var p events.BlockReorderedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		mu.Lock()
		perLessonSeen[evt.LessonID] = append(perLessonSeen[evt.LessonID], p.OrderIndex)
		mu.Unlock()
		return nil
	})

	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	for lessonID, seq := range perLessonSeen {
		if len(seq) != perLesson {
			t.Fatalf("lesson %s: want %d deliveries, got %d", lessonID, perLesson, len(seq))
		}
		for i := 1; i < len(seq); i++ {
			if seq[i-1] >= seq[i] {
				t.Fatalf("lesson %s delivered out of order at %d: %v", lessonID, i, seq)
			}
		}
	}
}

func TestFailingHandlerIsRetriedThenDelivered(t *testing.T) {
	repo := newFakeOutboxRepo()
	lessonID := uuid.New()
	repo.add(events.LessonCreated, lessonID, events.LessonPayload{LessonID: lessonID})

	relay := newTestRelay(t, repo, RelayConfig{MaxAttempts: 3, RetryDelay: time.Millisecond})
	var calls int
	relay.Register(events.LessonCreated, func(ctx context.Context, evt *events.Envelope) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient failure %d", calls)
		}
		return nil
	})

	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts, got %d", calls)
	}
	if n, _ := repo.CountUndispatched(context.Background(), nil); n != 0 {
		t.Fatalf("record not marked dispatched after retry success")
	}
}

func TestPoisonEventIsSkippedNotWedged(t *testing.T) {
	repo := newFakeOutboxRepo()
	lessonID := uuid.New()
	repo.add(events.LessonCreated, lessonID, events.LessonPayload{LessonID: lessonID})
	repo.add(events.LessonUpdated, lessonID, events.LessonPayload{LessonID: lessonID})

	relay := newTestRelay(t, repo, RelayConfig{MaxAttempts: 2, RetryDelay: time.Millisecond})
	var updatedDelivered bool
	relay.Register(events.LessonCreated, func(ctx context.Context, evt *events.Envelope) error {
		return fmt.Errorf("permanently broken")
	})
	relay.Register(events.LessonUpdated, func(ctx context.Context, evt *events.Envelope) error {
		updatedDelivered = true
		return nil
	})

	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if !updatedDelivered {
		t.Fatalf("poison event blocked later events on the same lesson")
	}
	if n, _ := repo.CountUndispatched(context.Background(), nil); n != 0 {
		t.Fatalf("poison event left undispatched; it should be skipped after retries")
	}
}

func TestCancelledDrainLeavesRecordForNextPass(t *testing.T) {
	repo := newFakeOutboxRepo()
	lessonID := uuid.New()
	repo.add(events.LessonCreated, lessonID, events.LessonPayload{LessonID: lessonID})

	relay := newTestRelay(t, repo, RelayConfig{MaxAttempts: 1, RetryDelay: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	relay.Register(events.LessonCreated, func(ctx context.Context, evt *events.Envelope) error {
		cancel()
		return ctx.Err()
	})

	if err := relay.DrainOnce(ctx); err == nil {
		t.Fatalf("cancelled drain should report an error")
	}
	if n, _ := repo.CountUndispatched(context.Background(), nil); n != 1 {
		t.Fatalf("healthy event marked dispatched during shutdown: %d undispatched", n)
	}

	// The same record is delivered on the next pass.
	replay := newTestRelay(t, repo, RelayConfig{})
	var delivered int
	replay.Register(events.LessonCreated, func(ctx context.Context, evt *events.Envelope) error {
		delivered++
		return nil
	})
	if err := replay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce after restart: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("want 1 redelivery after restart, got %d", delivered)
	}
	if n, _ := repo.CountUndispatched(context.Background(), nil); n != 0 {
		t.Fatalf("record still undispatched after redelivery: %d", n)
	}
}

func TestNotifyWakesStartedRelay(t *testing.T) {
	repo := newFakeOutboxRepo()
	lessonID := uuid.New()

	relay := newTestRelay(t, repo, RelayConfig{PollInterval: time.Hour})
	delivered := make(chan struct{}, 1)
	relay.Register(events.LessonCreated, func(ctx context.Context, evt *events.Envelope) error {
		select {
		case delivered <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay.Start(ctx)

	repo.add(events.LessonCreated, lessonID, events.LessonPayload{LessonID: lessonID})
	relay.Notify()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatalf("notify did not wake the relay")
	}
}

func TestEventWithoutHandlerIsMarkedDispatched(t *testing.T) {
	repo := newFakeOutboxRepo()
	repo.add("unknown.event", uuid.New(), struct{}{})

	relay := newTestRelay(t, repo, RelayConfig{})
	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if n, _ := repo.CountUndispatched(context.Background(), nil); n != 0 {
		t.Fatalf("handlerless event should still be marked dispatched")
	}
}
