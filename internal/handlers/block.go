package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/services"
)

type BlockHandler struct {
	log          *logger.Logger
	blockService services.BlockService
}

func NewBlockHandler(baseLog *logger.Logger, blockService services.BlockService) *BlockHandler {
	return &BlockHandler{
		log:          baseLog.With("handler", "BlockHandler"),
		blockService: blockService,
	}
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *BlockHandler) Create(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	var req struct {
		Type           string          `json:"type" binding:"required"`
		RequiredAction string          `json:"requiredAction"`
		Content        json.RawMessage `json:"content" binding:"required"`
		AfterBlockID   *string         `json:"afterBlockId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	afterBlockID, err := parseOptionalUUID(req.AfterBlockID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	block, err := h.blockService.CreateBlock(c.Request.Context(), userID, services.CreateBlockParams{
		LessonID:       lessonID,
		Type:           req.Type,
		RequiredAction: req.RequiredAction,
		Content:        req.Content,
		AfterBlockID:   afterBlockID,
	})
	if err != nil {
		h.log.Error("CreateBlock failed", "error", err, "user_id", userID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"block": block})
}

func (h *BlockHandler) Update(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	blockID, ok := pathUUID(c, "blockId")
	if !ok {
		return
	}
	var req struct {
		RequiredAction *string         `json:"requiredAction"`
		Content        json.RawMessage `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	block, err := h.blockService.UpdateBlock(c.Request.Context(), userID, blockID, services.UpdateBlockParams{
		RequiredAction: req.RequiredAction,
		Content:        req.Content,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"block": block})
}

func (h *BlockHandler) Reorder(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	blockID, ok := pathUUID(c, "blockId")
	if !ok {
		return
	}
	var req struct {
		AfterBlockID *string `json:"afterBlockId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	afterBlockID, err := parseOptionalUUID(req.AfterBlockID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	block, err := h.blockService.ReorderBlock(c.Request.Context(), userID, blockID, afterBlockID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"block": block})
}

func (h *BlockHandler) Delete(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	blockID, ok := pathUUID(c, "blockId")
	if !ok {
		return
	}
	if err := h.blockService.DeleteBlock(c.Request.Context(), userID, blockID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
