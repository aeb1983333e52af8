package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

var validate = validator.New()

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInvalidCredentials), errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusBadGateway:
		return "Upstream service unavailable"
	default:
		return "Internal Server Error"
	}
}

// writeError maps err onto the failure envelope. Server-side failures are
// logged; client errors are not.
func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg(msg)
	}
	utils.WriteJson(w, status, utils.WriteResponseFailed(err.Error(), messageFor(status)))
}

// decodeBody decodes a JSON body into dst and validates it.
func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := validate.Struct(dst); err != nil {
		return errs.Validation(err.Error())
	}
	return nil
}
