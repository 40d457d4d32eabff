package app

import (
	"github.com/gin-gonic/gin"

	"github.com/codedeck/codedeck-backend/internal/handlers"
	"github.com/codedeck/codedeck-backend/internal/middleware"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/server"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

type Handlers struct {
	Healthcheck *handlers.HealthcheckHandler
	Auth        *handlers.AuthHandler
	Course      *handlers.CourseHandler
	Lesson      *handlers.LessonHandler
	Block       *handlers.BlockHandler
	Role        *handlers.RoleHandler
	Student     *handlers.StudentHandler
	Admin       *handlers.AdminHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("wiring handlers")
	return Handlers{
		Healthcheck: handlers.NewHealthcheckHandler(),
		Auth:        handlers.NewAuthHandler(log, s.Auth),
		Course:      handlers.NewCourseHandler(log, s.Course),
		Lesson:      handlers.NewLessonHandler(log, s.Lesson),
		Block:       handlers.NewBlockHandler(log, s.Block),
		Role:        handlers.NewRoleHandler(log, s.Role),
		Student:     handlers.NewStudentHandler(log, s.StudentLesson),
		Admin:       handlers.NewAdminHandler(log, s.Rebuild),
	}
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, s.Auth),
	}
}

func wireRouter(cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:        cfg.ServiceName,
		AllowOrigins:       cfg.AllowOrigins,
		AuthMiddleware:     mw.Auth,
		AuthHandler:        h.Auth,
		CourseHandler:      h.Course,
		LessonHandler:      h.Lesson,
		BlockHandler:       h.Block,
		RoleHandler:        h.Role,
		StudentHandler:     h.Student,
		AdminHandler:       h.Admin,
		HealthcheckHandler: h.Healthcheck,
	})
}
