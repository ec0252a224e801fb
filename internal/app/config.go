package app

import (
	"strings"
	"time"

	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/utils"
)

type Config struct {
	Port                      string
	CORSOrigins               []string
	WorkerPoolSize            int
	MaxDownloadsPerPlatform   int
	RecommendedScoreThreshold float64
	RetryMaxAttempts          int
	RetryBaseDelay            time.Duration
	FlowPresetPath            string
	TempDir                   string
	ProcessedDir              string
	RedisAddr                 string
}

func LoadConfig(log *logger.Logger) Config {
	origins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		Port:                      utils.GetEnv("PORT", "8080", log),
		CORSOrigins:               origins,
		WorkerPoolSize:            utils.GetEnvAsInt("WORKER_POOL_SIZE", 3, log),
		MaxDownloadsPerPlatform:   utils.GetEnvAsInt("MAX_DOWNLOADS_PER_PLATFORM", 2, log),
		RecommendedScoreThreshold: utils.GetEnvAsFloat("RECOMMENDED_SCORE_THRESHOLD", 6.0, log),
		RetryMaxAttempts:          utils.GetEnvAsInt("STAGE_RETRY_ATTEMPTS", 3, log),
		RetryBaseDelay:            time.Duration(utils.GetEnvAsInt("STAGE_RETRY_BASE_DELAY_MS", 2000, log)) * time.Millisecond,
		FlowPresetPath:            utils.GetEnv("FLOW_PRESET_PATH", "", log),
		TempDir:                   utils.GetEnv("TEMP_DIR", "/tmp/clipforge/temp", log),
		ProcessedDir:              utils.GetEnv("PROCESSED_DIR", "/tmp/clipforge/processed", log),
		RedisAddr:                 utils.GetEnv("REDIS_ADDR", "", log),
	}
}
