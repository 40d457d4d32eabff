package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

const viewKeyPrefix = "lesson_view:"

type redisViewStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisViewStore keeps one JSON document per lesson under
// lesson_view:<lessonID>. SET/DEL are single atomic commands, which is all
// the projector needs for torn-view safety.
func NewRedisViewStore(rdb *goredis.Client, log *logger.Logger) (ViewStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &redisViewStore{log: log.With("store", "RedisViewStore"), rdb: rdb}, nil
}

func viewKey(lessonID uuid.UUID) string { return viewKeyPrefix + lessonID.String() }

func (s *redisViewStore) Get(ctx context.Context, lessonID uuid.UUID) (*types.LessonView, error) {
	raw, err := s.rdb.Get(ctx, viewKey(lessonID)).Bytes()
	if err == goredis.Nil {
		return nil, ErrViewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get lesson view: %w", err)
	}
	var view types.LessonView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode lesson view %s: %w", lessonID, err)
	}
	return &view, nil
}

func (s *redisViewStore) Put(ctx context.Context, view *types.LessonView) error {
	if view == nil {
		return fmt.Errorf("nil lesson view")
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode lesson view %s: %w", view.LessonID, err)
	}
	if err := s.rdb.Set(ctx, viewKey(view.LessonID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set lesson view: %w", err)
	}
	return nil
}

func (s *redisViewStore) Delete(ctx context.Context, lessonID uuid.UUID) error {
	if err := s.rdb.Del(ctx, viewKey(lessonID)).Err(); err != nil {
		return fmt.Errorf("redis del lesson view: %w", err)
	}
	return nil
}
