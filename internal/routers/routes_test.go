package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/app"
	"github.com/mekanizma/modli/backend/internal/config"
	"github.com/mekanizma/modli/backend/internal/handlers"
	"github.com/mekanizma/modli/backend/internal/repositories"
	"github.com/mekanizma/modli/backend/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	logger := zerolog.Nop()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{Server: config.ServerConfig{CORSAllowedOrigins: []string{"https://modli.mekanizma.com"}}}
	admin := services.NewAdminService(config.AdminConfig{}, repositories.NewSessionStore(rdb, time.Hour), nil, &logger)

	return &app.App{
		Logger:      &logger,
		RedisClient: rdb,
		Config:      cfg,
		Admin:       admin,
		MetaHandler: handlers.NewMetaHandler(&logger, nil),
		AHandler:    handlers.NewAdminHandler(&logger, admin),
	}
}

func TestSetupRoutes_Root(t *testing.T) {
	r := SetupRoutes(testApp(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Modli API - Virtual Try-On Service"}`, rec.Body.String())
}

func TestSetupRoutes_AdminRoutesRequireSession(t *testing.T) {
	r := SetupRoutes(testApp(t))

	for _, target := range []string{"/api/admin/stats", "/api/admin/users", "/api/admin/notifications/logs"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("X-Admin-Token", "not-a-session")
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestSetupRoutes_Preflight(t *testing.T) {
	r := SetupRoutes(testApp(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/try-on", nil)
	req.Header.Set("Origin", "https://modli.mekanizma.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://modli.mekanizma.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_Metrics(t *testing.T) {
	r := SetupRoutes(testApp(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "modli_http_inflight_requests")
}
