package utils

import (
	"os"
	"strconv"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("env var not set, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		if log != nil {
			log.Warn("env var not an int, using default", "env_var", key, "value", raw, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsFloat(key string, defaultVal float64, log *logger.Logger) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if log != nil {
			log.Warn("env var not a float, using default", "env_var", key, "value", raw, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}
