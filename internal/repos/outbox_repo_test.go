package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/repos/testutil"
	"github.com/codedeck/codedeck-backend/internal/types"
)

func TestOutboxRepoAppendRequiresTransaction(t *testing.T) {
	db := testutil.DB(t)
	repo := NewOutboxRepo(db, testutil.Logger(t))

	err := repo.Append(context.Background(), nil, &types.OutboxRecord{
		EventID:   uuid.New(),
		EventType: "lesson.created",
		LessonID:  uuid.New(),
		Payload:   datatypes.JSON([]byte(`{}`)),
	})
	if err != gorm.ErrInvalidTransaction {
		t.Fatalf("append without tx: want ErrInvalidTransaction, got %v", err)
	}
}

func TestOutboxRepoAppendAtomicWithMutation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewOutboxRepo(db, testutil.Logger(t))
	lessonID := uuid.New()

	count := func() int64 {
		var n int64
		if err := tx.WithContext(ctx).Model(&types.OutboxRecord{}).Where("lesson_id = ?", lessonID).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}

	record := func() *types.OutboxRecord {
		return &types.OutboxRecord{
			EventID:   uuid.New(),
			EventType: "block.created",
			LessonID:  lessonID,
			Payload:   datatypes.JSON([]byte(`{}`)),
		}
	}

	// A failed mutation takes its outbox record down with it.
	errMutation := errors.New("mutation failed")
	err := tx.Transaction(func(inner *gorm.DB) error {
		if err := repo.Append(ctx, inner, record()); err != nil {
			return err
		}
		return errMutation
	})
	if !errors.Is(err, errMutation) {
		t.Fatalf("transaction error: want mutation failure, got %v", err)
	}
	if n := count(); n != 0 {
		t.Fatalf("rolled-back mutation left %d outbox records", n)
	}

	// A committed mutation leaves exactly one.
	if err := tx.Transaction(func(inner *gorm.DB) error {
		return repo.Append(ctx, inner, record())
	}); err != nil {
		t.Fatalf("commit transaction: %v", err)
	}
	if n := count(); n != 1 {
		t.Fatalf("want exactly 1 outbox record after commit, got %d", n)
	}
}

func TestOutboxRepoDispatchLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewOutboxRepo(db, testutil.Logger(t))
	lessonID := uuid.New()

	recs := make([]*types.OutboxRecord, 0, 3)
	for i := 0; i < 3; i++ {
		rec := &types.OutboxRecord{
			EventID:   uuid.New(),
			EventType: "block.created",
			LessonID:  lessonID,
			Payload:   datatypes.JSON([]byte(`{}`)),
		}
		if err := repo.Append(ctx, tx, rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		recs = append(recs, rec)
	}

	undispatched, err := repo.ListUndispatched(ctx, tx, 0)
	if err != nil {
		t.Fatalf("ListUndispatched: %v", err)
	}
	if len(undispatched) != 3 {
		t.Fatalf("want 3 undispatched, got %d", len(undispatched))
	}
	// Insertion order is commit order; ids must be ascending.
	for i := 1; i < len(undispatched); i++ {
		if undispatched[i-1].ID >= undispatched[i].ID {
			t.Fatalf("undispatched not ordered by id: %v", undispatched)
		}
	}

	if err := repo.MarkDispatched(ctx, tx, []uint64{recs[0].ID, recs[1].ID}, time.Now().UTC()); err != nil {
		t.Fatalf("MarkDispatched: %v", err)
	}
	count, err := repo.CountUndispatched(ctx, tx)
	if err != nil {
		t.Fatalf("CountUndispatched: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 undispatched after marking two, got %d", count)
	}

	// Dispatched records stay in the table as an audit log.
	var total int64
	if err := tx.WithContext(ctx).Model(&types.OutboxRecord{}).Where("lesson_id = ?", lessonID).Count(&total).Error; err != nil {
		t.Fatalf("count all: %v", err)
	}
	if total != 3 {
		t.Fatalf("dispatch must not delete records: want 3, got %d", total)
	}
}
