package services

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/docstore"
	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type fakeCourseRepo struct {
	courses map[uuid.UUID]*types.Course
}

func (f *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return courses, nil
}

func (f *fakeCourseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	var out []*types.Course
	for _, id := range courseIDs {
		if c, ok := f.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeCourseRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	for _, id := range courseIDs {
		delete(f.courses, id)
	}
	return nil
}

func (f *fakeCourseRepo) ListForPolicies(ctx context.Context, tx *gorm.DB, userID uuid.UUID, policies []policy.Policy) ([]*types.Course, error) {
	var out []*types.Course
	for _, c := range f.courses {
		if policy.EvaluateAll(policies, userID, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	progress map[string]*types.StudentProgress
}

func progressKey(userID, courseID uuid.UUID) string {
	return userID.String() + "/" + courseID.String()
}

func (f *fakeProgressRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.StudentProgress, error) {
	return f.progress[progressKey(userID, courseID)], nil
}

func (f *fakeProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, p *types.StudentProgress) error {
	f.progress[progressKey(p.UserID, p.CourseID)] = p
	return nil
}

type fakeRoleService struct {
	policies map[string][]policy.Policy
	err      error
}

func (f *fakeRoleService) ListRoles(ctx context.Context) ([]*types.Role, error) { return nil, nil }
func (f *fakeRoleService) CreateRole(ctx context.Context, name, description string, permissions []string, policies map[string][]string) (*types.Role, error) {
	return nil, nil
}
func (f *fakeRoleService) UpdateRole(ctx context.Context, roleID uuid.UUID, updates map[string]interface{}) (*types.Role, error) {
	return nil, nil
}
func (f *fakeRoleService) DeleteRole(ctx context.Context, roleID uuid.UUID) error { return nil }
func (f *fakeRoleService) Authorize(ctx context.Context, userID uuid.UUID, permission string) ([]policy.Policy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.policies[permission], nil
}

var (
	_ repos.CourseRepo   = (*fakeCourseRepo)(nil)
	_ repos.ProgressRepo = (*fakeProgressRepo)(nil)
	_ RoleService        = (*fakeRoleService)(nil)
)

type studentLessonFixture struct {
	svc      StudentLessonService
	store    *docstore.MemoryViewStore
	courses  *fakeCourseRepo
	progress *fakeProgressRepo
	roles    *fakeRoleService
}

func newStudentLessonFixture(t *testing.T) *studentLessonFixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	courses := &fakeCourseRepo{courses: map[uuid.UUID]*types.Course{}}
	progress := &fakeProgressRepo{progress: map[string]*types.StudentProgress{}}
	roles := &fakeRoleService{policies: map[string][]policy.Policy{
		PermLessonRead: {policy.PublishedOrOwner},
	}}
	store := docstore.NewMemoryViewStore()
	return &studentLessonFixture{
		svc:      NewStudentLessonService(nil, log, courses, progress, store, roles),
		store:    store,
		courses:  courses,
		progress: progress,
		roles:    roles,
	}
}

func (f *studentLessonFixture) seedCourse(ownerID uuid.UUID, published bool) *types.Course {
	c := &types.Course{ID: uuid.New(), OwnerID: ownerID, Title: "c", IsPublished: published}
	f.courses.courses[c.ID] = c
	return c
}

func (f *studentLessonFixture) seedView(t *testing.T, courseID uuid.UUID, blocks ...types.BlockView) *types.LessonView {
	t.Helper()
	view := &types.LessonView{
		LessonID: uuid.New(),
		CourseID: courseID,
		Title:    "lesson",
		Blocks:   blocks,
	}
	if err := f.store.Put(context.Background(), view); err != nil {
		t.Fatalf("seed view: %v", err)
	}
	return view
}

func TestGetLessonForStudentServesFromViewStore(t *testing.T) {
	f := newStudentLessonFixture(t)
	ctx := context.Background()
	student := uuid.New()
	course := f.seedCourse(uuid.New(), true)
	view := f.seedView(t, course.ID, types.BlockView{
		BlockID:        uuid.New(),
		Type:           types.BlockTypeText,
		OrderIndex:     1,
		RequiredAction: types.RequiredActionView,
		Content:        json.RawMessage(`{"bodyMd":"x"}`),
	})

	got, err := f.svc.GetLessonForStudent(ctx, student, course.ID, view.LessonID)
	if err != nil {
		t.Fatalf("GetLessonForStudent: %v", err)
	}
	if got.LessonID != view.LessonID || got.TotalBlocks != 1 || len(got.Blocks) != 1 {
		t.Fatalf("disclosed lesson wrong: %+v", got)
	}
}

func TestGetLessonForStudentDeniesUnpublishedForeignCourse(t *testing.T) {
	f := newStudentLessonFixture(t)
	ctx := context.Background()
	student := uuid.New()
	course := f.seedCourse(uuid.New(), false)
	view := f.seedView(t, course.ID)

	_, err := f.svc.GetLessonForStudent(ctx, student, course.ID, view.LessonID)
	if !goerrors.Is(err, pkgerrors.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestGetLessonForStudentMissingViewIsNotFound(t *testing.T) {
	f := newStudentLessonFixture(t)
	ctx := context.Background()
	course := f.seedCourse(uuid.New(), true)

	_, err := f.svc.GetLessonForStudent(ctx, uuid.New(), course.ID, uuid.New())
	if !goerrors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetLessonForStudentAppliesProgressGating(t *testing.T) {
	f := newStudentLessonFixture(t)
	ctx := context.Background()
	student := uuid.New()
	course := f.seedCourse(uuid.New(), true)
	gate := uuid.New()
	view := f.seedView(t, course.ID,
		types.BlockView{
			BlockID:        gate,
			Type:           types.BlockTypeCode,
			OrderIndex:     1,
			RequiredAction: types.RequiredActionSubmit,
			Content:        json.RawMessage(`{"taskMd":"t","hiddenTests":["x"]}`),
		},
		types.BlockView{
			BlockID:        uuid.New(),
			Type:           types.BlockTypeText,
			OrderIndex:     2,
			RequiredAction: types.RequiredActionView,
			Content:        json.RawMessage(`{"bodyMd":"locked"}`),
		},
	)

	// No progress yet: only the gate is visible.
	got, err := f.svc.GetLessonForStudent(ctx, student, course.ID, view.LessonID)
	if err != nil {
		t.Fatalf("GetLessonForStudent: %v", err)
	}
	if got.VisibleBlocksCount != 1 {
		t.Fatalf("ungraded gate should truncate, got %d visible", got.VisibleBlocksCount)
	}

	// Grade the gate and the second block opens.
	doc := types.ProgressDoc{
		view.LessonID.String(): types.LessonCompletion{
			CompletedBlocks: map[string]types.BlockCompletion{
				gate.String(): {Status: types.ProgressStatusGraded, Score: 1},
			},
		},
	}
	raw, _ := json.Marshal(doc)
	f.progress.progress[progressKey(student, course.ID)] = &types.StudentProgress{
		UserID:   student,
		CourseID: course.ID,
		Lessons:  datatypes.JSON(raw),
	}

	got, err = f.svc.GetLessonForStudent(ctx, student, course.ID, view.LessonID)
	if err != nil {
		t.Fatalf("GetLessonForStudent after grading: %v", err)
	}
	if got.VisibleBlocksCount != 2 {
		t.Fatalf("graded gate should disclose the next block, got %d visible", got.VisibleBlocksCount)
	}
}

func TestGetLessonForStudentWrongCourseScopeIsIntegrityError(t *testing.T) {
	f := newStudentLessonFixture(t)
	ctx := context.Background()
	courseA := f.seedCourse(uuid.New(), true)
	courseB := f.seedCourse(uuid.New(), true)
	view := f.seedView(t, courseA.ID)

	_, err := f.svc.GetLessonForStudent(ctx, uuid.New(), courseB.ID, view.LessonID)
	if !goerrors.Is(err, pkgerrors.ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
}
