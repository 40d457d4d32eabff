package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/repos/testutil"
	"github.com/codedeck/codedeck-backend/internal/types"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, "courserepo@example.com", nil)
	c := &types.Course{
		ID:      uuid.New(),
		OwnerID: owner.ID,
		Title:   "concurrency",
	}
	if _, err := repo.Create(ctx, tx, []*types.Course{c}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	if err := repo.Update(ctx, tx, c.ID, map[string]interface{}{"is_published": true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{c.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs after update: err=%v len=%d", err, len(rows))
	}
	if !rows[0].IsPublished {
		t.Fatalf("is_published not persisted")
	}

	if err := repo.DeleteByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after delete GetByIDs: err=%v len=%d", err, len(rows))
	}
}

func TestCourseRepoListForPolicies(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, "courselist-owner@example.com", nil)
	other := testutil.SeedUser(t, ctx, tx, "courselist-other@example.com", nil)

	ownDraft := testutil.SeedCourse(t, ctx, tx, owner.ID, false)
	ownPublished := testutil.SeedCourse(t, ctx, tx, owner.ID, true)
	otherPublished := testutil.SeedCourse(t, ctx, tx, other.ID, true)
	testutil.SeedCourse(t, ctx, tx, other.ID, false) // foreign draft, never visible below

	got, err := repo.ListForPolicies(ctx, tx, owner.ID, []policy.Policy{policy.PublishedOrOwner})
	if err != nil {
		t.Fatalf("ListForPolicies: %v", err)
	}
	want := map[uuid.UUID]bool{ownDraft.ID: true, ownPublished.ID: true, otherPublished.ID: true}
	if len(got) != len(want) {
		t.Fatalf("published_or_owner: want %d courses, got %d", len(want), len(got))
	}
	for _, c := range got {
		if !want[c.ID] {
			t.Fatalf("published_or_owner returned unexpected course %s", c.ID)
		}
	}

	got, err = repo.ListForPolicies(ctx, tx, owner.ID, []policy.Policy{policy.OwnerOnly})
	if err != nil {
		t.Fatalf("ListForPolicies owner_only: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("owner_only: want 2 courses, got %d", len(got))
	}
}
