package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// Writer appends domain events to the outbox table. The caller's transaction
// is mandatory: the record commits or rolls back together with the mutation
// that produced it, so no event can exist for a mutation that never happened.
type Writer interface {
	Append(ctx context.Context, tx *gorm.DB, eventType string, lessonID uuid.UUID, payload interface{}) error
}

type writer struct {
	repo repos.OutboxRepo
	log  *logger.Logger
}

func NewWriter(repo repos.OutboxRepo, baseLog *logger.Logger) Writer {
	return &writer{repo: repo, log: baseLog.With("service", "OutboxWriter")}
}

func (w *writer) Append(ctx context.Context, tx *gorm.DB, eventType string, lessonID uuid.UUID, payload interface{}) error {
	if tx == nil {
		return fmt.Errorf("outbox append requires the mutation's transaction")
	}
	if eventType == "" {
		return fmt.Errorf("outbox append requires an event type")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload for %s: %w", eventType, err)
	}

	rec := &types.OutboxRecord{
		EventID:   uuid.New(),
		EventType: eventType,
		LessonID:  lessonID,
		Payload:   datatypes.JSON(raw),
	}
	if err := w.repo.Append(ctx, tx, rec); err != nil {
		return fmt.Errorf("append outbox record for %s: %w", eventType, err)
	}
	return nil
}
