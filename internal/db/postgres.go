package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
	"github.com/codedeck/codedeck-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(baseLog *logger.Logger) (*PostgresService, error) {
	serviceLog := baseLog.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", serviceLog)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", serviceLog)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", serviceLog)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", serviceLog)
	postgresName := utils.GetEnv("POSTGRES_NAME", "codedeck", serviceLog)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("connecting to postgres", "host", postgresHost, "database", postgresName)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("auto migrating postgres tables")
	err := s.db.AutoMigrate(
		&types.Role{},
		&types.User{},
		&types.UserToken{},
		&types.Course{},
		&types.Lesson{},
		&types.Block{},
		&types.OutboxRecord{},
		&types.StudentProgress{},
	)
	if err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
