package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/services"
)

// StudentHandler serves the read path. Lesson content comes from the
// projected document store, gated by the disclosure engine; it never touches
// the relational lesson tables.
type StudentHandler struct {
	log                  *logger.Logger
	studentLessonService services.StudentLessonService
}

func NewStudentHandler(baseLog *logger.Logger, studentLessonService services.StudentLessonService) *StudentHandler {
	return &StudentHandler{
		log:                  baseLog.With("handler", "StudentHandler"),
		studentLessonService: studentLessonService,
	}
}

func (h *StudentHandler) GetLesson(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	lesson, err := h.studentLessonService.GetLessonForStudent(c.Request.Context(), userID, courseID, lessonID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}
