package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

type ImageUploader interface {
	Upload(ctx context.Context, userID, bucket, filename string, data []byte) (*dtos.UploadImageResponse, error)
}

type UploadHandler struct {
	logger   *zerolog.Logger
	images   ImageUploader
	maxBytes int64
}

func NewUploadHandler(log *zerolog.Logger, images ImageUploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{logger: log, images: images, maxBytes: maxBytes}
}

// HandleUploadImage accepts multipart fields file, bucket, user_id and an
// optional filename.
func (h *UploadHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	data, err := h.readFile(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp, err := h.images.Upload(r.Context(), r.FormValue("user_id"), r.FormValue("bucket"), r.FormValue("filename"), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteJson(w, http.StatusOK, resp)
}

func (h *UploadHandler) readFile(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.Validation(fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
		}
		return nil, errs.Validation(fmt.Sprintf("invalid multipart form: %v", err))
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errs.Validation("file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// fail keeps the typed body the app expects. Only client mistakes get a
// non-200 status.
func (h *UploadHandler) fail(w http.ResponseWriter, err error) {
	status := http.StatusOK
	if errors.Is(err, errs.ErrValidation) {
		status = http.StatusBadRequest
	} else {
		h.logger.Error().Err(err).Msg("image upload failed")
	}
	utils.WriteJson(w, status, dtos.UploadImageResponse{Success: false, Error: err.Error()})
}
