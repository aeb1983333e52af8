package handlers

import (
	"context"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

const (
	rootMessage     = "Modli API - Virtual Try-On Service"
	statusListLimit = 1000
)

type StatusStore interface {
	Create(ctx context.Context, clientName string) (*models.StatusCheck, error)
	List(ctx context.Context, limit int) ([]models.StatusCheck, error)
}

type MetaHandler struct {
	logger   *zerolog.Logger
	statuses StatusStore
}

func NewMetaHandler(log *zerolog.Logger, statuses StatusStore) *MetaHandler {
	return &MetaHandler{logger: log, statuses: statuses}
}

func (h *MetaHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	utils.WriteJson(w, http.StatusOK, dtos.MessageResponse{Message: rootMessage})
}

func (h *MetaHandler) HandleCreateStatus(w http.ResponseWriter, r *http.Request) {
	var body dtos.StatusCheckCreate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, err, "invalid status check")
		return
	}

	check, err := h.statuses.Create(r.Context(), body.ClientName)
	if err != nil {
		writeError(w, h.logger, err, "failed to create status check")
		return
	}
	utils.WriteJson(w, http.StatusOK, check)
}

func (h *MetaHandler) HandleListStatus(w http.ResponseWriter, r *http.Request) {
	checks, err := h.statuses.List(r.Context(), statusListLimit)
	if err != nil {
		writeError(w, h.logger, err, "failed to list status checks")
		return
	}
	utils.WriteJson(w, http.StatusOK, checks)
}
