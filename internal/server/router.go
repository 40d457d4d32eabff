package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/codedeck/codedeck-backend/internal/handlers"
	"github.com/codedeck/codedeck-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName        string
	AllowOrigins       []string
	AuthMiddleware     *middleware.AuthMiddleware
	AuthHandler        *handlers.AuthHandler
	CourseHandler      *handlers.CourseHandler
	LessonHandler      *handlers.LessonHandler
	BlockHandler       *handlers.BlockHandler
	RoleHandler        *handlers.RoleHandler
	StudentHandler     *handlers.StudentHandler
	AdminHandler       *handlers.AdminHandler
	HealthcheckHandler *handlers.HealthcheckHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// Courses
	protected.POST("/courses", cfg.CourseHandler.Create)
	protected.GET("/courses", cfg.CourseHandler.List)
	protected.GET("/courses/:courseId", cfg.CourseHandler.Get)
	protected.PATCH("/courses/:courseId", cfg.CourseHandler.Update)
	protected.PUT("/courses/:courseId/published", cfg.CourseHandler.SetPublished)
	protected.DELETE("/courses/:courseId", cfg.CourseHandler.Delete)
	// Lessons
	protected.POST("/courses/:courseId/lessons", cfg.LessonHandler.Create)
	protected.GET("/courses/:courseId/lessons", cfg.LessonHandler.ListForCourse)
	protected.GET("/lessons/:lessonId", cfg.LessonHandler.Get)
	protected.PATCH("/lessons/:lessonId", cfg.LessonHandler.Update)
	protected.DELETE("/lessons/:lessonId", cfg.LessonHandler.Delete)
	// Blocks
	protected.POST("/lessons/:lessonId/blocks", cfg.BlockHandler.Create)
	protected.PATCH("/blocks/:blockId", cfg.BlockHandler.Update)
	protected.PUT("/blocks/:blockId/position", cfg.BlockHandler.Reorder)
	protected.DELETE("/blocks/:blockId", cfg.BlockHandler.Delete)
	// Student read path
	protected.GET("/student/courses/:courseId/lessons/:lessonId", cfg.StudentHandler.GetLesson)
	// Roles
	protected.GET("/roles", cfg.RoleHandler.List)
	protected.POST("/roles", cfg.RoleHandler.Create)
	protected.PATCH("/roles/:roleId", cfg.RoleHandler.Update)
	protected.DELETE("/roles/:roleId", cfg.RoleHandler.Delete)
	// Admin
	protected.POST("/admin/views/rebuild", cfg.AdminHandler.RebuildViews)

	return router
}
