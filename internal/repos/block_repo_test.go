package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/codedeck/codedeck-backend/internal/repos/testutil"
	"github.com/codedeck/codedeck-backend/internal/types"
)

func TestBlockRepoOrderedByOrderIndex(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewBlockRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, "blockrepo@example.com", nil)
	course := testutil.SeedCourse(t, ctx, tx, owner.ID, false)
	lesson := testutil.SeedLesson(t, ctx, tx, course.ID, 1)

	last := testutil.SeedBlock(t, ctx, tx, lesson.ID, 3072)
	first := testutil.SeedBlock(t, ctx, tx, lesson.ID, 1024)
	middle := testutil.SeedBlock(t, ctx, tx, lesson.ID, 2048)

	rows, err := repo.GetByLessonIDs(ctx, tx, []uuid.UUID{lesson.ID})
	if err != nil || len(rows) != 3 {
		t.Fatalf("GetByLessonIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].ID != first.ID || rows[1].ID != middle.ID || rows[2].ID != last.ID {
		t.Fatalf("blocks not ordered by order_index: %v %v %v",
			rows[0].OrderIndex, rows[1].OrderIndex, rows[2].OrderIndex)
	}

	// Fractional move: put last between first and middle.
	if err := repo.Update(ctx, tx, last.ID, map[string]interface{}{"order_index": 1536.0}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	rows, err = repo.GetByLessonIDs(ctx, tx, []uuid.UUID{lesson.ID})
	if err != nil {
		t.Fatalf("GetByLessonIDs after move: %v", err)
	}
	if rows[1].ID != last.ID {
		t.Fatalf("fractional order_index not respected, middle row is %s", rows[1].ID)
	}

	if err := repo.DeleteByIDs(ctx, tx, []uuid.UUID{first.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByLessonIDs(ctx, tx, []uuid.UUID{lesson.ID}); err != nil || len(rows) != 2 {
		t.Fatalf("after delete GetByLessonIDs: err=%v len=%d", err, len(rows))
	}
}

func TestBlockRepoDeletedBlockFreesItsOrderSlot(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewBlockRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, "blockrepo-slot@example.com", nil)
	course := testutil.SeedCourse(t, ctx, tx, owner.ID, false)
	lesson := testutil.SeedLesson(t, ctx, tx, course.ID, 1)

	testutil.SeedBlock(t, ctx, tx, lesson.ID, 1024)
	gone := testutil.SeedBlock(t, ctx, tx, lesson.ID, 1536)
	testutil.SeedBlock(t, ctx, tx, lesson.ID, 2048)

	if err := repo.DeleteByIDs(ctx, tx, []uuid.UUID{gone.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}

	// The midpoint of the live neighbors lands exactly on the deleted
	// block's index; the unique constraint must not reject it.
	replacement := &types.Block{
		ID:             uuid.New(),
		LessonID:       lesson.ID,
		Type:           types.BlockTypeText,
		RequiredAction: types.RequiredActionView,
		OrderIndex:     1536,
		Content:        datatypes.JSON([]byte(`{"bodyMd":"y"}`)),
	}
	if _, err := repo.Create(ctx, tx, []*types.Block{replacement}); err != nil {
		t.Fatalf("create at a deleted block's order index: %v", err)
	}

	rows, err := repo.GetByLessonIDs(ctx, tx, []uuid.UUID{lesson.ID})
	if err != nil || len(rows) != 3 {
		t.Fatalf("GetByLessonIDs: err=%v len=%d", err, len(rows))
	}
	if rows[1].ID != replacement.ID {
		t.Fatalf("replacement not in the freed slot, middle row is %s", rows[1].ID)
	}

	// The soft-deleted row stays behind the scenes.
	var total int64
	if err := tx.WithContext(ctx).Unscoped().Model(&types.Block{}).Where("lesson_id = ?", lesson.ID).Count(&total).Error; err != nil {
		t.Fatalf("count all: %v", err)
	}
	if total != 4 {
		t.Fatalf("soft delete should retain the row: want 4, got %d", total)
	}
}
