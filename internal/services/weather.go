package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	coldThreshold   = 15.0
	defaultLanguage = "en"
)

type WeatherService struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewWeatherService(endpoint, apiKey string, httpClient *http.Client, logger *zerolog.Logger) *WeatherService {
	return &WeatherService{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Current returns the metric-unit conditions at lat/lon.
func (s *WeatherService) Current(ctx context.Context, lat, lon float64, lang string) (*dtos.WeatherResponse, error) {
	if s.apiKey == "" {
		return nil, errs.NotConfigured("Weather API")
	}
	if lang == "" {
		lang = defaultLanguage
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("appid", s.apiKey)
	params.Set("units", "metric")
	params.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("weather request failed")
		return nil, errs.Upstream("weather", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.Upstream("weather", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error().Int("status", resp.StatusCode).Msg("weather API returned an error")
		return nil, errs.UpstreamMessage("Weather API error")
	}

	fields := gjson.GetManyBytes(body, "main.temp", "weather.0.description", "weather.0.icon", "name", "weather.0.main")
	if !fields[0].Exists() {
		return nil, errs.UpstreamMessage("Weather API error")
	}

	temp := fields[0].Float()
	return &dtos.WeatherResponse{
		Temp:        int(math.Round(temp)),
		Description: fields[1].String(),
		Icon:        fields[2].String(),
		City:        fields[3].String(),
		IsCold:      temp < coldThreshold,
		IsRainy:     strings.Contains(strings.ToLower(fields[4].String()), "rain"),
	}, nil
}
