package handlers

import (
	"context"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

type TryOnGenerator interface {
	TryOn(ctx context.Context, req dtos.TryOnRequest) dtos.TryOnResponse
}

type TryOnHandler struct {
	logger *zerolog.Logger
	tryOn  TryOnGenerator
}

func NewTryOnHandler(log *zerolog.Logger, tryOn TryOnGenerator) *TryOnHandler {
	return &TryOnHandler{logger: log, tryOn: tryOn}
}

// HandleTryOn answers 200 with success=false for generation failures; the
// app reads the error from the body.
func (h *TryOnHandler) HandleTryOn(w http.ResponseWriter, r *http.Request) {
	var body dtos.TryOnRequest
	if err := decodeBody(r, &body); err != nil {
		utils.WriteJson(w, http.StatusBadRequest, dtos.TryOnResponse{Success: false, Error: err.Error()})
		return
	}

	utils.WriteJson(w, http.StatusOK, h.tryOn.TryOn(r.Context(), body))
}
