package models

// UserProfile mirrors the profiles table the mobile app writes to.
type UserProfile struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	FullName           *string `json:"full_name,omitempty"`
	Credits            *int    `json:"credits,omitempty"`
	SubscriptionTier   *string `json:"subscription_tier,omitempty"`
	SubscriptionStatus *string `json:"subscription_status,omitempty"`
	AvatarURL          *string `json:"avatar_url,omitempty"`
	CreatedAt          *string `json:"created_at,omitempty"`
}
