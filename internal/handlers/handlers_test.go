package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nopLogger = zerolog.Nop()

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Validation("bad"), http.StatusBadRequest},
		{errs.ErrInvalidCredentials, http.StatusUnauthorized},
		{errs.ErrUnauthorized, http.StatusUnauthorized},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.NotConfigured("FAL_KEY"), http.StatusInternalServerError},
		{errs.Upstream("token store", errors.New("down")), http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

type fakeStatusStore struct {
	created []string
}

func (f *fakeStatusStore) Create(_ context.Context, clientName string) (*models.StatusCheck, error) {
	f.created = append(f.created, clientName)
	return &models.StatusCheck{ID: uuid.New(), ClientName: clientName, Timestamp: time.Now().UTC()}, nil
}

func (f *fakeStatusStore) List(_ context.Context, limit int) ([]models.StatusCheck, error) {
	return []models.StatusCheck{{ID: uuid.New(), ClientName: "mobile"}}, nil
}

func TestMetaHandler(t *testing.T) {
	store := &fakeStatusStore{}
	h := NewMetaHandler(&nopLogger, store)

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	assert.Equal(t, "Modli API - Virtual Try-On Service", decode(t, rec)["message"])

	rec = httptest.NewRecorder()
	h.HandleCreateStatus(rec, jsonRequest(http.MethodPost, "/api/status", `{"client_name":"mobile"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mobile", decode(t, rec)["client_name"])
	assert.Equal(t, []string{"mobile"}, store.created)

	rec = httptest.NewRecorder()
	h.HandleCreateStatus(rec, jsonRequest(http.MethodPost, "/api/status", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = httptest.NewRecorder()
	h.HandleListStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var list []models.StatusCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := newHealthHandler(&nopLogger, healthCheck{"database", ok}, healthCheck{"redis", ok})
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	h = newHealthHandler(&nopLogger, healthCheck{"database", ok}, healthCheck{"redis", down})
	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "unhealthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"].(map[string]any)["status"])
	assert.Equal(t, "connection refused", checks["redis"].(map[string]any)["error"])
}

type fakeTryOn struct {
	got dtos.TryOnRequest
}

func (f *fakeTryOn) TryOn(_ context.Context, req dtos.TryOnRequest) dtos.TryOnResponse {
	f.got = req
	return dtos.TryOnResponse{Success: false, Error: "FAL_KEY not configured"}
}

func TestTryOnHandler(t *testing.T) {
	svc := &fakeTryOn{}
	h := NewTryOnHandler(&nopLogger, svc)

	rec := httptest.NewRecorder()
	h.HandleTryOn(rec, jsonRequest(http.MethodPost, "/api/try-on",
		`{"user_id":"u1","user_image":"https://x/p.jpg","clothing_image":"https://x/c.jpg","clothing_category":"tops"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "FAL_KEY not configured"}, decode(t, rec))
	assert.Equal(t, "tops", svc.got.ClothingCategory)

	rec = httptest.NewRecorder()
	h.HandleTryOn(rec, jsonRequest(http.MethodPost, "/api/try-on", `{"user_id":"u1"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

type fakeWeather struct {
	err error
}

func (f fakeWeather) Current(_ context.Context, lat, lon float64, lang string) (*dtos.WeatherResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dtos.WeatherResponse{Temp: int(lat), City: lang}, nil
}

func TestWeatherHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewWeatherHandler(&nopLogger, fakeWeather{}).HandleWeather(rec,
		jsonRequest(http.MethodPost, "/api/weather", `{"latitude":0,"longitude":28.9,"language":"tr"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tr", decode(t, rec)["city"])

	rec = httptest.NewRecorder()
	NewWeatherHandler(&nopLogger, fakeWeather{}).HandleWeather(rec,
		jsonRequest(http.MethodPost, "/api/weather", `{"latitude":91,"longitude":0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewWeatherHandler(&nopLogger, fakeWeather{err: errs.NotConfigured("Weather API")}).HandleWeather(rec,
		jsonRequest(http.MethodPost, "/api/weather", `{"latitude":1,"longitude":1}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Weather API not configured", decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	NewWeatherHandler(&nopLogger, fakeWeather{err: errs.UpstreamMessage("Weather API error")}).HandleWeather(rec,
		jsonRequest(http.MethodPost, "/api/weather", `{"latitude":1,"longitude":1}`))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

type fakeUploader struct {
	userID, bucket, filename string
	size                     int
	err                      error
}

func (f *fakeUploader) Upload(_ context.Context, userID, bucket, filename string, data []byte) (*dtos.UploadImageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.userID, f.bucket, f.filename, f.size = userID, bucket, filename, len(data)
	return &dtos.UploadImageResponse{Success: true, FullURL: "full", ThumbnailURL: "thumb"}, nil
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "photo.jpg")
		require.NoError(t, err)
		fw.Write(file)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	fields := map[string]string{"user_id": "u1", "bucket": "wardrobe", "filename": "shirt"}

	svc := &fakeUploader{}
	rec := httptest.NewRecorder()
	NewUploadHandler(&nopLogger, svc, 1<<20).HandleUploadImage(rec, multipartRequest(t, fields, []byte("image-bytes")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "thumb", decode(t, rec)["thumbnail_url"])
	assert.Equal(t, "u1", svc.userID)
	assert.Equal(t, "wardrobe", svc.bucket)
	assert.Equal(t, "shirt", svc.filename)
	assert.Equal(t, len("image-bytes"), svc.size)

	rec = httptest.NewRecorder()
	NewUploadHandler(&nopLogger, &fakeUploader{}, 1<<20).HandleUploadImage(rec, multipartRequest(t, fields, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed: file is required", decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	NewUploadHandler(&nopLogger, &fakeUploader{}, 64).HandleUploadImage(rec, multipartRequest(t, fields, bytes.Repeat([]byte("x"), 1024)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewUploadHandler(&nopLogger, &fakeUploader{err: errs.NotConfigured("Storage")}, 1<<20).HandleUploadImage(rec, multipartRequest(t, fields, []byte("img")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Storage not configured"}, decode(t, rec))
}
