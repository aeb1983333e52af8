package dtos

import (
	"github.com/mekanizma/modli/backend/internal/models"
)

// HTTPResponse is the envelope used for failures and for endpoints that
// have no fixed client contract.
type HTTPResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type StatusCheckCreate struct {
	ClientName string `json:"client_name" validate:"required,max=200"`
}

// TryOnRequest carries either image URLs or data URIs; fal.ai accepts both.
type TryOnRequest struct {
	UserID           string `json:"user_id" validate:"required"`
	UserImage        string `json:"user_image" validate:"required"`
	ClothingImage    string `json:"clothing_image" validate:"required"`
	ClothingCategory string `json:"clothing_category"`
	IsFreeTrial      bool   `json:"is_free_trial"`
}

type TryOnResponse struct {
	Success     bool   `json:"success"`
	ResultImage string `json:"result_image,omitempty"`
	Error       string `json:"error,omitempty"`
}

type WeatherRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Language  string   `json:"language" validate:"omitempty,max=10"`
}

type WeatherResponse struct {
	Temp        int    `json:"temp"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	City        string `json:"city"`
	IsCold      bool   `json:"is_cold"`
	IsRainy     bool   `json:"is_rainy"`
}

type UploadImageResponse struct {
	Success      bool   `json:"success"`
	FullURL      string `json:"full_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type UserListResponse struct {
	Users    []models.UserProfile `json:"users"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type UpdateCreditsRequest struct {
	Credits *int `json:"credits" validate:"required,gte=0"`
}

type UserResponse struct {
	User *models.UserProfile `json:"user"`
}

type UserStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Free    int `json:"free"`
	Premium int `json:"premium"`
}

type CreditStats struct {
	Total   int     `json:"total"`
	Average float64 `json:"average"`
}

type ImageStats struct {
	Wardrobe int `json:"wardrobe"`
	Profiles int `json:"profiles"`
}

type Stats struct {
	Users   UserStats   `json:"users"`
	Credits CreditStats `json:"credits"`
	Images  ImageStats  `json:"images"`
}

type StatsResponse struct {
	Stats Stats `json:"stats"`
}

type SendNotificationRequest struct {
	Title  string         `json:"title" validate:"required,max=200"`
	Body   string         `json:"body" validate:"required,max=2000"`
	UserID *string        `json:"user_id"`
	Data   map[string]any `json:"data"`
}

type SendNotificationResponse struct {
	Success bool     `json:"success"`
	LogID   string   `json:"log_id"`
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Total   int      `json:"total"`
	Errors  []string `json:"errors"`
}

type DeliveryLogListResponse struct {
	Logs     []models.DeliveryLog `json:"logs"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}
