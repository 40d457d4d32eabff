package app

import (
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/repos"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo
	Role      repos.RoleRepo
	Course    repos.CourseRepo
	Lesson    repos.LessonRepo
	Block     repos.BlockRepo
	Outbox    repos.OutboxRepo
	Progress  repos.ProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repos")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),
		Role:      repos.NewRoleRepo(db, log),
		Course:    repos.NewCourseRepo(db, log),
		Lesson:    repos.NewLessonRepo(db, log),
		Block:     repos.NewBlockRepo(db, log),
		Outbox:    repos.NewOutboxRepo(db, log),
		Progress:  repos.NewProgressRepo(db, log),
	}
}
