package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/database"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

const healthCheckTimeout = 5 * time.Second

type healthCheck struct {
	name string
	ping func(context.Context) error
}

type HealthHandler struct {
	logger *zerolog.Logger
	checks []healthCheck
}

func NewHealthHandler(log *zerolog.Logger, rdb *redis.Client, db *database.Database) *HealthHandler {
	return newHealthHandler(log,
		healthCheck{name: "database", ping: db.Pool.Ping},
		healthCheck{name: "redis", ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
}

func newHealthHandler(log *zerolog.Logger, checks ...healthCheck) *HealthHandler {
	return &HealthHandler{logger: log, checks: checks}
}

func (h *HealthHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	checks := make(map[string]any, len(h.checks))
	isHealthy := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		checkStart := time.Now()
		err := c.ping(ctx)
		cancel()

		result := map[string]any{
			"status":        "healthy",
			"response_time": time.Since(checkStart).String(),
		}
		if err != nil {
			result["status"] = "unhealthy"
			result["error"] = err.Error()
			isHealthy = false
			h.logger.Error().Err(err).Str("check", c.name).Dur("response_time", time.Since(checkStart)).Msg("health check failed")
		}
		checks[c.name] = result
	}

	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	if !isHealthy {
		response["status"] = "unhealthy"
		h.logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		utils.WriteJson(w, http.StatusServiceUnavailable, response)
		return
	}

	h.logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")
	utils.WriteJson(w, http.StatusOK, response)
}
