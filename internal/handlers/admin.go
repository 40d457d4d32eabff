package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/services"
)

type AdminHandler struct {
	log            *logger.Logger
	rebuildService services.RebuildService
}

func NewAdminHandler(baseLog *logger.Logger, rebuildService services.RebuildService) *AdminHandler {
	return &AdminHandler{
		log:            baseLog.With("handler", "AdminHandler"),
		rebuildService: rebuildService,
	}
}

// RebuildViews re-projects every lesson view from the relational source of
// truth. The recovery path for a drifted or flushed document store.
func (h *AdminHandler) RebuildViews(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	count, err := h.rebuildService.RebuildAll(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("RebuildViews failed", "error", err, "user_id", userID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"rebuilt": count})
}
