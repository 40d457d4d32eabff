package repos

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/codedeck/codedeck-backend/internal/repos/testutil"
	"github.com/codedeck/codedeck-backend/internal/types"
)

func TestProgressRepoAbsentIsNilNil(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewProgressRepo(db, testutil.Logger(t))
	got, err := repo.GetByUserAndCourse(context.Background(), tx, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("GetByUserAndCourse: %v", err)
	}
	if got != nil {
		t.Fatalf("absent progress should be nil, got %+v", got)
	}
}

func TestProgressRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewProgressRepo(db, testutil.Logger(t))

	student := testutil.SeedUser(t, ctx, tx, "progressrepo@example.com", nil)
	owner := testutil.SeedUser(t, ctx, tx, "progressrepo-owner@example.com", nil)
	course := testutil.SeedCourse(t, ctx, tx, owner.ID, true)
	lessonID := uuid.New()
	blockID := uuid.New()

	doc := types.ProgressDoc{
		lessonID.String(): types.LessonCompletion{
			CompletedBlocks: map[string]types.BlockCompletion{
				blockID.String(): {Status: types.ProgressStatusGraded, Score: 1},
			},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}

	p := &types.StudentProgress{
		ID:       uuid.New(),
		UserID:   student.ID,
		CourseID: course.ID,
		Lessons:  datatypes.JSON(raw),
	}
	if err := repo.Upsert(ctx, tx, p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Second upsert on the same (user, course) replaces, never duplicates.
	doc[lessonID.String()].CompletedBlocks[blockID.String()] = types.BlockCompletion{Status: types.ProgressStatusGraded, Score: 0.5}
	raw, _ = json.Marshal(doc)
	p2 := &types.StudentProgress{
		ID:       uuid.New(),
		UserID:   student.ID,
		CourseID: course.ID,
		Lessons:  datatypes.JSON(raw),
	}
	if err := repo.Upsert(ctx, tx, p2); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := repo.GetByUserAndCourse(ctx, tx, student.ID, course.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByUserAndCourse: err=%v got=%v", err, got)
	}
	gotDoc := got.Doc()
	comp := gotDoc[lessonID.String()].CompletedBlocks[blockID.String()]
	if comp.Score != 0.5 {
		t.Fatalf("upsert did not replace document: score=%v", comp.Score)
	}
}
