package services

import (
	goerrors "errors"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/types"
)

func siblingBlocks(orderIndexes ...float64) []*types.Block {
	out := make([]*types.Block, 0, len(orderIndexes))
	for _, idx := range orderIndexes {
		out = append(out, &types.Block{ID: uuid.New(), OrderIndex: idx})
	}
	return out
}

func TestPlacementIndexAppendToEmptyLesson(t *testing.T) {
	idx, err := placementIndex(nil, nil, uuid.Nil)
	if err != nil {
		t.Fatalf("placementIndex: %v", err)
	}
	if idx != orderSpacing {
		t.Fatalf("first block index: want=%v got=%v", orderSpacing, idx)
	}
}

func TestPlacementIndexAppendAfterLast(t *testing.T) {
	sibs := siblingBlocks(1024, 2048)
	idx, err := placementIndex(sibs, nil, uuid.Nil)
	if err != nil {
		t.Fatalf("placementIndex: %v", err)
	}
	if idx != 2048+orderSpacing {
		t.Fatalf("append index: want=%v got=%v", 2048+orderSpacing, idx)
	}
}

func TestPlacementIndexMidpointBetweenNeighbors(t *testing.T) {
	sibs := siblingBlocks(1024, 2048)
	after := sibs[0].ID
	idx, err := placementIndex(sibs, &after, uuid.Nil)
	if err != nil {
		t.Fatalf("placementIndex: %v", err)
	}
	if idx != 1536 {
		t.Fatalf("midpoint index: want=1536 got=%v", idx)
	}
	if !(idx > sibs[0].OrderIndex && idx < sibs[1].OrderIndex) {
		t.Fatalf("midpoint must fall strictly between neighbors, got %v", idx)
	}
}

func TestPlacementIndexAfterAnchorAtEnd(t *testing.T) {
	sibs := siblingBlocks(1024, 2048)
	after := sibs[1].ID
	idx, err := placementIndex(sibs, &after, uuid.Nil)
	if err != nil {
		t.Fatalf("placementIndex: %v", err)
	}
	if idx != 2048+orderSpacing {
		t.Fatalf("after-last index: want=%v got=%v", 2048+orderSpacing, idx)
	}
}

func TestPlacementIndexReorderToFront(t *testing.T) {
	sibs := siblingBlocks(1024, 2048, 3072)
	moving := sibs[2].ID
	idx, err := placementIndex(sibs, nil, moving)
	if err != nil {
		t.Fatalf("placementIndex: %v", err)
	}
	if idx != 512 {
		t.Fatalf("front index: want=512 got=%v", idx)
	}
}

func TestPlacementIndexReorderExcludesMovingBlock(t *testing.T) {
	sibs := siblingBlocks(1024, 2048, 3072)
	moving := sibs[1].ID
	after := sibs[0].ID
	idx, err := placementIndex(sibs, &after, moving)
	if err != nil {
		t.Fatalf("placementIndex: %v", err)
	}
	// With the moving block excluded, the neighbor after the anchor is 3072.
	if idx != 2048 {
		t.Fatalf("reorder index: want=2048 got=%v", idx)
	}
}

func TestPlacementIndexUnknownAnchor(t *testing.T) {
	sibs := siblingBlocks(1024)
	unknown := uuid.New()
	_, err := placementIndex(sibs, &unknown, uuid.Nil)
	if !goerrors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown anchor: want ErrNotFound, got %v", err)
	}
}
