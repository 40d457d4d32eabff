package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/services"
)

type LessonHandler struct {
	log           *logger.Logger
	lessonService services.LessonService
}

func NewLessonHandler(baseLog *logger.Logger, lessonService services.LessonService) *LessonHandler {
	return &LessonHandler{
		log:           baseLog.With("handler", "LessonHandler"),
		lessonService: lessonService,
	}
}

func (h *LessonHandler) Create(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	var req struct {
		Title   string `json:"title" binding:"required"`
		Goals   string `json:"goals"`
		Order   int    `json:"order"`
		IsDraft bool   `json:"isDraft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	lesson, err := h.lessonService.CreateLesson(c.Request.Context(), userID, services.CreateLessonParams{
		CourseID: courseID,
		Title:    req.Title,
		Goals:    req.Goals,
		Order:    req.Order,
		IsDraft:  req.IsDraft,
	})
	if err != nil {
		h.log.Error("CreateLesson failed", "error", err, "user_id", userID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Get(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	lesson, err := h.lessonService.GetLesson(c.Request.Context(), userID, lessonID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}

func (h *LessonHandler) ListForCourse(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	lessons, err := h.lessonService.ListLessonsForCourse(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"lessons": lessons})
}

func (h *LessonHandler) Update(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	var req struct {
		Title   *string `json:"title"`
		Goals   *string `json:"goals"`
		Order   *int    `json:"order"`
		IsDraft *bool   `json:"isDraft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Goals != nil {
		updates["goals"] = *req.Goals
	}
	if req.Order != nil {
		updates["lesson_order"] = *req.Order
	}
	if req.IsDraft != nil {
		updates["is_draft"] = *req.IsDraft
	}
	lesson, err := h.lessonService.UpdateLesson(c.Request.Context(), userID, lessonID, updates)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Delete(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	if err := h.lessonService.DeleteLesson(c.Request.Context(), userID, lessonID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
