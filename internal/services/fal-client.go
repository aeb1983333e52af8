package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/tidwall/gjson"
)

const (
	maxFalErrorBody = 200
	maxImageBytes   = 25 << 20

	msgNoImages = "No images returned from API"
	msgTimeout  = "Request timed out. Please try again."
)

var errFalTimeout = errs.UpstreamMessage(msgTimeout)

type falRequest struct {
	PersonImageURL     string  `json:"person_image_url"`
	ClothingImageURL   string  `json:"clothing_image_url"`
	PreservePose       bool    `json:"preserve_pose"`
	PreserveFace       bool    `json:"preserve_face"`
	PreserveBackground bool    `json:"preserve_background"`
	NumImages          int     `json:"num_images"`
	NumInferenceSteps  int     `json:"num_inference_steps"`
	GuidanceScale      float64 `json:"guidance_scale"`
	ClothingFidelity   string  `json:"clothing_fidelity"`
	BodyFidelity       string  `json:"body_fidelity"`
}

// FalClient calls the fal.ai virtual try-on model.
type FalClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewFalClient(endpoint, apiKey string, httpClient *http.Client) *FalClient {
	return &FalClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *FalClient) Configured() bool {
	return c.apiKey != ""
}

// Generate returns the URL of the generated image. Person and clothing
// images may be URLs or data URIs.
func (c *FalClient) Generate(ctx context.Context, personImage, clothingImage string) (string, error) {
	if !c.Configured() {
		return "", errs.NotConfigured("FAL_KEY")
	}

	payload, err := json.Marshal(falRequest{
		PersonImageURL:     personImage,
		ClothingImageURL:   clothingImage,
		PreservePose:       true,
		PreserveFace:       true,
		PreserveBackground: true,
		NumImages:          1,
		NumInferenceSteps:  30,
		GuidanceScale:      7.5,
		ClothingFidelity:   "high",
		BodyFidelity:       "high",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal try-on request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create try-on request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError("fal.ai request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", transportError("fal.ai response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", errs.UpstreamMessage("API error: %d - %s", resp.StatusCode, truncateRunes(string(body), maxFalErrorBody))
	}

	imageURL := gjson.GetBytes(body, "images.0.url").String()
	if imageURL == "" {
		return "", errs.UpstreamMessage(msgNoImages)
	}
	return imageURL, nil
}

// FetchImage downloads a generated image.
func (c *FalClient) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError("image download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.UpstreamMessage(msgNoImages)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, transportError("image download", err)
	}
	return data, nil
}

func transportError(op string, err error) error {
	if isTimeout(err) {
		return errFalTimeout
	}
	return errs.Upstream(op, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
