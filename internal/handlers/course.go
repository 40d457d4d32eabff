package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/requestdata"
	"github.com/codedeck/codedeck-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(baseLog *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           baseLog.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

// identity pulls the authenticated user out of the request context; the auth
// middleware guarantees it is present on protected routes.
func identity(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := h.courseService.CreateCourse(c.Request.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.log.Error("CreateCourse failed", "error", err, "user_id", userID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"course": course})
}

func (h *CourseHandler) Get(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	course, err := h.courseService.GetCourse(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courses, err := h.courseService.ListCourses(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("ListCourses failed", "error", err, "user_id", userID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) Update(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	course, err := h.courseService.UpdateCourse(c.Request.Context(), userID, courseID, updates)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) SetPublished(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	var req struct {
		Published *bool `json:"published" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := h.courseService.SetPublished(c.Request.Context(), userID, courseID, *req.Published)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	if err := h.courseService.DeleteCourse(c.Request.Context(), userID, courseID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
