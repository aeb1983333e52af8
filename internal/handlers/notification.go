package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	redis "github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/middleware"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/mekanizma/modli/backend/internal/services"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

const (
	IdempotencyHeader = "X-Idempotency-Key"
	ReplayHeader      = "X-Idempotent-Replay"

	idempotencyPrefix = "idempotency:notifications:"
	idempotencyTTL    = 24 * time.Hour
	idempotencyMarker = "pending"

	// pendingTTL lets a key claimed by a request that never finished expire
	// on its own. Completed responses are kept for idempotencyTTL.
	pendingTTL = 10 * time.Minute
)

type NotificationSender interface {
	Send(ctx context.Context, n push.Notification) (*services.SendResult, error)
	Status(ctx context.Context, logID string) (*push.DeliveryStatus, error)
	Logs(ctx context.Context, page, pageSize int) ([]models.DeliveryLog, int, error)
}

type NotificationHandler struct {
	logger        *zerolog.Logger
	redisClient   *redis.Client
	notifications NotificationSender
}

func NewNotificationHandler(log *zerolog.Logger, rdb *redis.Client, notifications NotificationSender) *NotificationHandler {
	return &NotificationHandler{
		logger:        log,
		redisClient:   rdb,
		notifications: notifications,
	}
}

// HandleSend dispatches synchronously and reports per-token counts. With an
// X-Idempotency-Key header the first response is stored for 24h and replayed
// for repeats of the same key.
func (h *NotificationHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var body dtos.SendNotificationRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, err, "invalid notification request")
		return
	}

	idempotencyKey := r.Header.Get(IdempotencyHeader)
	if idempotencyKey != "" {
		if done := h.claimKey(w, r, idempotencyKey); done {
			return
		}
	}

	if body.UserID != nil && *body.UserID == "" {
		body.UserID = nil
	}

	result, err := h.notifications.Send(r.Context(), push.Notification{
		Title:  body.Title,
		Body:   body.Body,
		UserID: body.UserID,
		Data:   body.Data,
	})
	if err != nil {
		if idempotencyKey != "" {
			h.releaseKey(idempotencyKey)
		}
		writeError(w, h.logger, err, "failed to send notification")
		return
	}

	response := dtos.SendNotificationResponse{
		Success: result.Outcome.Success(),
		LogID:   result.Log.ID.String(),
		Sent:    result.Log.SentCount,
		Failed:  result.Log.FailedCount,
		Total:   result.Log.TotalTargets,
		Errors:  result.Errors(),
	}

	h.logger.Info().
		Str("admin", middleware.AdminEmail(r.Context())).
		Str("log_id", response.LogID).
		Int("sent", response.Sent).
		Int("failed", response.Failed).
		Msg("admin notification sent")

	if idempotencyKey != "" {
		h.storeResponse(idempotencyKey, response)
	}
	utils.WriteJson(w, http.StatusOK, response)
}

// claimKey reserves key for this request. It writes the response itself and
// returns true when the key was already used.
func (h *NotificationHandler) claimKey(w http.ResponseWriter, r *http.Request, key string) bool {
	ctx := r.Context()
	redisKey := idempotencyPrefix + key

	claimed, err := h.redisClient.SetNX(ctx, redisKey, idempotencyMarker, pendingTTL).Result()
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Error claiming idempotency key")
		utils.WriteJson(w, http.StatusInternalServerError, utils.WriteResponseFailed(err.Error(), "Error checking idempotency key"))
		return true
	}
	if claimed {
		return false
	}

	val, err := h.redisClient.Get(ctx, redisKey).Result()
	if err != nil && err != redis.Nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Error retrieving idempotency key from redis")
		utils.WriteJson(w, http.StatusInternalServerError, utils.WriteResponseFailed(err.Error(), "Error checking idempotency key"))
		return true
	}

	if val == idempotencyMarker || val == "" {
		utils.WriteJson(w, http.StatusConflict, utils.WriteResponseFailed("request with this idempotency key is in progress", "Duplicate request"))
		return true
	}

	h.logger.Info().Str("key", key).Msg("Duplicate request detected, replaying response")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(val))
	return true
}

// storeResponse and releaseKey run after the request's work is done, so they
// use their own short context.
func (h *NotificationHandler) storeResponse(key string, response dtos.SendNotificationResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(response)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal response for idempotency cache")
		return
	}
	if err := h.redisClient.Set(ctx, idempotencyPrefix+key, data, idempotencyTTL).Err(); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("Error caching idempotent response")
	}
}

func (h *NotificationHandler) releaseKey(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.redisClient.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("Error releasing idempotency key")
	}
}

func (h *NotificationHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	page, pageSize := utils.Pagination(r)

	logs, total, err := h.notifications.Logs(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, h.logger, err, "failed to list delivery logs")
		return
	}
	if logs == nil {
		logs = []models.DeliveryLog{}
	}

	utils.WriteJson(w, http.StatusOK, dtos.DeliveryLogListResponse{
		Logs:     logs,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *NotificationHandler) HandleDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.notifications.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to load delivery status")
		return
	}
	utils.WriteJson(w, http.StatusOK, utils.WriteResponseSuccess(status, "Delivery status retrieved"))
}
