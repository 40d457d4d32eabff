package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		dbErr = db.AutoMigrate(
			&types.Role{},
			&types.User{},
			&types.UserToken{},
			&types.Course{},
			&types.Lesson{},
			&types.Block{},
			&types.OutboxRecord{},
			&types.StudentProgress{},
		)
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

// Tx begins a transaction that rolls back when the test finishes, keeping the
// shared test database clean between tests.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func SeedRole(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, permissions []string, policies map[string][]string) *types.Role {
	tb.Helper()
	permsJSON, err := json.Marshal(permissions)
	if err != nil {
		tb.Fatalf("marshal permissions: %v", err)
	}
	policiesJSON, err := json.Marshal(policies)
	if err != nil {
		tb.Fatalf("marshal policies: %v", err)
	}
	role := &types.Role{
		ID:          uuid.New(),
		Name:        name,
		Permissions: permsJSON,
		Policies:    policiesJSON,
	}
	if err := tx.WithContext(ctx).Create(role).Error; err != nil {
		tb.Fatalf("seed role: %v", err)
	}
	return role
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, roleID *uuid.UUID) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "x",
		RoleID:   roleID,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, published bool) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       "course",
		IsPublished: published,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, order int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    "lesson",
		Order:    order,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedBlock(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, orderIndex float64) *types.Block {
	tb.Helper()
	b := &types.Block{
		ID:             uuid.New(),
		LessonID:       lessonID,
		Type:           types.BlockTypeText,
		RequiredAction: types.RequiredActionView,
		OrderIndex:     orderIndex,
		Content:        datatypes.JSON([]byte(`{"bodyMd":"x"}`)),
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed block: %v", err)
	}
	return b
}
