package handlers

import (
	"context"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64, lang string) (*dtos.WeatherResponse, error)
}

type WeatherHandler struct {
	logger  *zerolog.Logger
	weather WeatherProvider
}

func NewWeatherHandler(log *zerolog.Logger, weather WeatherProvider) *WeatherHandler {
	return &WeatherHandler{logger: log, weather: weather}
}

func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	var body dtos.WeatherRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, err, "invalid weather request")
		return
	}

	resp, err := h.weather.Current(r.Context(), *body.Latitude, *body.Longitude, body.Language)
	if err != nil {
		writeError(w, h.logger, err, "weather lookup failed")
		return
	}
	utils.WriteJson(w, http.StatusOK, resp)
}
