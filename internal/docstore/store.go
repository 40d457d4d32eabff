package docstore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/types"
)

// ErrViewNotFound distinguishes "no document projected yet" from real
// failures. Callers treat it as a recoverable not-found, never a crash.
var ErrViewNotFound = errors.New("lesson view not found")

// ViewStore is the document home of the denormalized lesson read model. Put
// replaces the whole document in one operation so readers never observe a
// half-applied projection.
type ViewStore interface {
	Get(ctx context.Context, lessonID uuid.UUID) (*types.LessonView, error)
	Put(ctx context.Context, view *types.LessonView) error
	Delete(ctx context.Context, lessonID uuid.UUID) error
}
