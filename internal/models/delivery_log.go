package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryLog is the append-only record of one notification send.
type DeliveryLog struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Title        string         `json:"title" db:"title"`
	Body         string         `json:"body" db:"body"`
	TargetUserID *string        `json:"target_user_id" db:"target_user_id"`
	SentCount    int            `json:"sent_count" db:"sent_count"`
	FailedCount  int            `json:"failed_count" db:"failed_count"`
	TotalTargets int            `json:"total_targets" db:"total_targets"`
	Tokens       TokenSummaries `json:"tokens" db:"tokens"`
	Errors       StringList     `json:"errors" db:"errors"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// TokenSummary never carries a full push token.
type TokenSummary struct {
	TokenPrefix string `json:"token_prefix"`
	Platform    string `json:"platform"`
	UserID      string `json:"user_id"`
	IsExpo      bool   `json:"is_expo"`
	IsFCM       bool   `json:"is_fcm"`
}

type TokenSummaries []TokenSummary

func (t TokenSummaries) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *TokenSummaries) Scan(value any) error {
	return scanJSON(value, t)
}

type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value any) error {
	return scanJSON(value, s)
}

func scanJSON(value any, dst any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("failed to unmarshal JSON column: unsupported type %T", value)
	}
}
