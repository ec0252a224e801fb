package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler reports liveness plus the reachability of the backing
// stores. Redis is optional; when absent it is reported as "disabled".
type HealthHandler struct {
	db      *gorm.DB
	rdb     *goredis.Client
	outDirs []string
}

func NewHealthHandler(db *gorm.DB, rdb *goredis.Client, outDirs ...string) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, outDirs: outDirs}
}

// GET /healthcheck
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	dbState := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbState = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbState = err.Error()
	}
	if dbState != "ok" {
		status = http.StatusServiceUnavailable
	}
	checks["database"] = dbState

	redisState := "disabled"
	if h.rdb != nil {
		redisState = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			redisState = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	checks["redis"] = redisState

	storageState := "ok"
	for _, dir := range h.outDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			storageState = err.Error()
			status = http.StatusServiceUnavailable
			break
		}
	}
	checks["storage"] = storageState

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
