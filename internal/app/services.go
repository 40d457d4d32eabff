package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/docstore"
	"github.com/codedeck/codedeck-backend/internal/outbox"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/projector"
	"github.com/codedeck/codedeck-backend/internal/services"
)

type Services struct {
	Auth          services.AuthService
	Role          services.RoleService
	Course        services.CourseService
	Lesson        services.LessonService
	Block         services.BlockService
	StudentLesson services.StudentLessonService
	Rebuild       services.RebuildService
}

// wireServices builds the outbox pipeline first (writer, relay, projector),
// then the domain services around it.
func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, store docstore.ViewStore) (Services, *outbox.Relay) {
	log.Info("wiring services")

	writer := outbox.NewWriter(r.Outbox, log)
	relay := outbox.NewRelay(r.Outbox, log, outbox.RelayConfig{
		PollInterval: time.Duration(cfg.RelayPollSecs) * time.Second,
		BatchSize:    cfg.RelayBatchSize,
	})
	proj := projector.NewLessonViewProjector(store, log)
	proj.Register(relay)

	roleService := services.NewRoleService(db, log, r.Role, r.User)
	return Services{
		Auth: services.NewAuthService(
			db, log, r.User, r.UserToken, r.Role,
			cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		),
		Role:          roleService,
		Course:        services.NewCourseService(db, log, r.Course, r.Lesson, r.Block, roleService, writer, relay),
		Lesson:        services.NewLessonService(db, log, r.Course, r.Lesson, r.Block, roleService, writer, relay),
		Block:         services.NewBlockService(db, log, r.Course, r.Lesson, r.Block, roleService, writer, relay),
		StudentLesson: services.NewStudentLessonService(db, log, r.Course, r.Progress, store, roleService),
		Rebuild:       services.NewRebuildService(db, log, r.Lesson, r.Block, store, roleService),
	}, relay
}
