package models

import (
	"time"

	"github.com/google/uuid"
)

type StatusCheck struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ClientName string    `json:"client_name" db:"client_name"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}
