package handlers

import (
	"context"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/middleware"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

type AdminConsole interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ListUsers(ctx context.Context, page, pageSize int, search string) ([]models.UserProfile, int, error)
	UpdateCredits(ctx context.Context, userID string, credits int) (*models.UserProfile, error)
	Stats(ctx context.Context) (*dtos.Stats, error)
}

type AdminHandler struct {
	logger  *zerolog.Logger
	console AdminConsole
}

func NewAdminHandler(log *zerolog.Logger, console AdminConsole) *AdminHandler {
	return &AdminHandler{logger: log, console: console}
}

func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body dtos.AdminLoginRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, err, "invalid login request")
		return
	}

	token, err := h.console.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, h.logger, err, "admin login failed")
		return
	}
	utils.WriteJson(w, http.StatusOK, dtos.AdminLoginResponse{Success: true, Token: token})
}

func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.console.Logout(r.Context(), r.Header.Get(middleware.AdminTokenHeader)); err != nil {
		writeError(w, h.logger, err, "admin logout failed")
		return
	}
	utils.WriteJson(w, http.StatusOK, dtos.SuccessResponse{Success: true})
}

func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := utils.Pagination(r)

	users, total, err := h.console.ListUsers(r.Context(), page, pageSize, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, h.logger, err, "failed to list users")
		return
	}
	if users == nil {
		users = []models.UserProfile{}
	}

	utils.WriteJson(w, http.StatusOK, dtos.UserListResponse{
		Users:    users,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeError(w, h.logger, errs.Validation("user id is required"), "invalid user id")
		return
	}

	var body dtos.UpdateCreditsRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, err, "invalid credits update")
		return
	}

	user, err := h.console.UpdateCredits(r.Context(), userID, *body.Credits)
	if err != nil {
		writeError(w, h.logger, err, "failed to update credits")
		return
	}

	h.logger.Info().
		Str("admin", middleware.AdminEmail(r.Context())).
		Str("user_id", userID).
		Int("credits", *body.Credits).
		Msg("admin updated credits")

	utils.WriteJson(w, http.StatusOK, dtos.UserResponse{User: user})
}

func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.console.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "failed to load stats")
		return
	}
	utils.WriteJson(w, http.StatusOK, dtos.StatsResponse{Stats: *stats})
}
