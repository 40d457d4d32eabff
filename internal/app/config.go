package app

import (
	"strings"
	"time"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/utils"
)

type Config struct {
	ServiceName     string
	Environment     string
	Version         string
	Port            string
	AllowOrigins    []string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RelayPollSecs   int
	RelayBatchSize  int
}

func LoadConfig(log *logger.Logger) Config {
	origins := []string{}
	for _, o := range strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		ServiceName:     utils.GetEnv("SERVICE_NAME", "codedeck-backend", log),
		Environment:     utils.GetEnv("ENVIRONMENT", "development", log),
		Version:         utils.GetEnv("SERVICE_VERSION", "dev", log),
		Port:            utils.GetEnv("PORT", "8080", log),
		AllowOrigins:    origins,
		JWTSecretKey:    utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)) * time.Second,
		RefreshTokenTTL: time.Duration(utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)) * time.Second,
		RelayPollSecs:   utils.GetEnvAsInt("OUTBOX_POLL_SECONDS", 5, log),
		RelayBatchSize:  utils.GetEnvAsInt("OUTBOX_BATCH_SIZE", 200, log),
	}
}
