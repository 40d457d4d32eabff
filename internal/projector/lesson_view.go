package projector

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/codedeck/codedeck-backend/internal/docstore"
	"github.com/codedeck/codedeck-backend/internal/events"
	"github.com/codedeck/codedeck-backend/internal/outbox"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// LessonViewProjector folds outbox events into the denormalized lesson view.
// Every handler is idempotent and writes the whole document in a single Put,
// so re-delivery converges and readers never see a torn view.
//
// Failure policy per handler: a malformed or inconsistent event is logged and
// dropped (a retry cannot fix it, and one bad event must not wedge the
// stream); a store error propagates so the relay retries delivery.
type LessonViewProjector struct {
	store docstore.ViewStore
	log   *logger.Logger
}

func NewLessonViewProjector(store docstore.ViewStore, baseLog *logger.Logger) *LessonViewProjector {
	return &LessonViewProjector{store: store, log: baseLog.With("service", "LessonViewProjector")}
}

// Register wires one handler per event type into the relay.
func (p *LessonViewProjector) Register(relay *outbox.Relay) {
	relay.Register(events.LessonCreated, p.HandleLessonCreated)
	relay.Register(events.LessonUpdated, p.HandleLessonUpdated)
	relay.Register(events.LessonDeleted, p.HandleLessonDeleted)
	relay.Register(events.BlockCreated, p.HandleBlockCreated)
	relay.Register(events.BlockUpdated, p.HandleBlockUpdated)
	relay.Register(events.BlockReordered, p.HandleBlockReordered)
	relay.Register(events.BlockDeleted, p.HandleBlockDeleted)
}

func (p *LessonViewProjector) HandleLessonCreated(ctx context.Context, evt *events.Envelope) error {
	var payload events.LessonPayload
	if !p.decode(evt, &payload) {
		return nil
	}
	// A replayed create overwrites whatever is there; the event carries the
	// full lesson shape, so the result is the same either way.
	view := &types.LessonView{
		LessonID: payload.LessonID,
		CourseID: payload.CourseID,
		Title:    payload.Title,
		Goals:    payload.Goals,
		Order:    payload.Order,
		IsDraft:  payload.IsDraft,
		Blocks:   []types.BlockView{},
	}
	return p.store.Put(ctx, view)
}

func (p *LessonViewProjector) HandleLessonUpdated(ctx context.Context, evt *events.Envelope) error {
	var payload events.LessonPayload
	if !p.decode(evt, &payload) {
		return nil
	}
	view, ok, err := p.load(ctx, evt)
	if err != nil || !ok {
		return err
	}
	view.CourseID = payload.CourseID
	view.Title = payload.Title
	view.Goals = payload.Goals
	view.Order = payload.Order
	view.IsDraft = payload.IsDraft
	return p.store.Put(ctx, view)
}

func (p *LessonViewProjector) HandleLessonDeleted(ctx context.Context, evt *events.Envelope) error {
	return p.store.Delete(ctx, evt.LessonID)
}

func (p *LessonViewProjector) HandleBlockCreated(ctx context.Context, evt *events.Envelope) error {
	var payload events.BlockPayload
	if !p.decode(evt, &payload) || !p.consistent(evt, payload.LessonID.String()) {
		return nil
	}
	view, ok, err := p.load(ctx, evt)
	if err != nil || !ok {
		return err
	}
	upsertBlock(view, payload.Block)
	sortBlocks(view)
	return p.store.Put(ctx, view)
}

func (p *LessonViewProjector) HandleBlockUpdated(ctx context.Context, evt *events.Envelope) error {
	var payload events.BlockPayload
	if !p.decode(evt, &payload) || !p.consistent(evt, payload.LessonID.String()) {
		return nil
	}
	view, ok, err := p.load(ctx, evt)
	if err != nil || !ok {
		return err
	}
	for i := range view.Blocks {
		if view.Blocks[i].BlockID == payload.Block.BlockID {
			view.Blocks[i] = payload.Block
			sortBlocks(view)
			return p.store.Put(ctx, view)
		}
	}
	// Target block already gone; nothing to update.
	return nil
}

func (p *LessonViewProjector) HandleBlockReordered(ctx context.Context, evt *events.Envelope) error {
	var payload events.BlockReorderedPayload
	if !p.decode(evt, &payload) {
		return nil
	}
	view, ok, err := p.load(ctx, evt)
	if err != nil || !ok {
		return err
	}
	for i := range view.Blocks {
		if view.Blocks[i].BlockID == payload.BlockID {
			view.Blocks[i].OrderIndex = payload.OrderIndex
			sortBlocks(view)
			return p.store.Put(ctx, view)
		}
	}
	return nil
}

func (p *LessonViewProjector) HandleBlockDeleted(ctx context.Context, evt *events.Envelope) error {
	var payload events.BlockDeletedPayload
	if !p.decode(evt, &payload) {
		return nil
	}
	view, ok, err := p.load(ctx, evt)
	if err != nil || !ok {
		return err
	}
	kept := view.Blocks[:0]
	for _, b := range view.Blocks {
		if b.BlockID != payload.BlockID {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(view.Blocks) {
		return nil
	}
	view.Blocks = kept
	sortBlocks(view)
	return p.store.Put(ctx, view)
}

// load fetches the event's target view. A missing view is reported as
// (nil, false, nil): the aggregate is gone or not yet projected, and the
// admin rebuild is the recovery path, so the handler no-ops.
func (p *LessonViewProjector) load(ctx context.Context, evt *events.Envelope) (*types.LessonView, bool, error) {
	view, err := p.store.Get(ctx, evt.LessonID)
	if errors.Is(err, docstore.ErrViewNotFound) {
		p.log.Warn("projection target missing, skipping event",
			"event_type", evt.Type, "lesson_id", evt.LessonID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return view, true, nil
}

func (p *LessonViewProjector) decode(evt *events.Envelope, into interface{}) bool {
	if err := json.Unmarshal(evt.Payload, into); err != nil {
		p.log.Error("undecodable outbox payload, dropping event",
			"event_type", evt.Type, "lesson_id", evt.LessonID, "error", err)
		return false
	}
	return true
}

func (p *LessonViewProjector) consistent(evt *events.Envelope, payloadLessonID string) bool {
	if evt.LessonID.String() != payloadLessonID {
		p.log.Error("event envelope and payload disagree on lesson, dropping event",
			"event_type", evt.Type, "lesson_id", evt.LessonID, "payload_lesson_id", payloadLessonID)
		return false
	}
	return true
}

// upsertBlock inserts by block id, replacing on re-delivery instead of
// duplicating.
func upsertBlock(view *types.LessonView, block types.BlockView) {
	for i := range view.Blocks {
		if view.Blocks[i].BlockID == block.BlockID {
			view.Blocks[i] = block
			return
		}
	}
	view.Blocks = append(view.Blocks, block)
}

// sortBlocks restores ascending orderIndex after every mutation. Re-sorting
// unconditionally is what keeps the array consistently ordered no matter how
// reorder events interleave with other mutations on the same lesson.
func sortBlocks(view *types.LessonView) {
	sort.SliceStable(view.Blocks, func(i, j int) bool {
		return view.Blocks[i].OrderIndex < view.Blocks[j].OrderIndex
	})
}
