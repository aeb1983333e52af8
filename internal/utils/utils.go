package utils

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mekanizma/modli/backend/internal/dtos"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func WriteJson(w http.ResponseWriter, status int, response any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(response)
}

func writeResponse(isSucessful bool, data interface{}, err, message string) *dtos.HTTPResponse {
	return &dtos.HTTPResponse{
		Success: isSucessful,
		Data:    data,
		Error:   err,
		Message: message,
	}
}

func WriteResponseSuccess(data interface{}, message string) *dtos.HTTPResponse {
	return writeResponse(true, data, "", message)
}

func WriteResponseFailed(err, message string) *dtos.HTTPResponse {
	return writeResponse(false, nil, err, message)
}

// Pagination reads page and page_size query parameters, falling back to
// defaults for missing or out-of-range values.
func Pagination(r *http.Request) (page, pageSize int) {
	page, pageSize = DefaultPage, DefaultPageSize

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 {
		pageSize = min(v, MaxPageSize)
	}
	return page, pageSize
}
