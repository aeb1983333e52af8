// Package push fans notifications out to the Expo push gateway.
package push

import (
	"strings"
	"time"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformUnknown Platform = "unknown"
)

func ParsePlatform(s string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformIOS:
		return PlatformIOS
	case PlatformAndroid:
		return PlatformAndroid
	default:
		return PlatformUnknown
	}
}

// Destination is one registered device.
type Destination struct {
	Token          string
	Platform       Platform
	UserID         string
	UpdatedAt      time.Time
	Classification Classification
}

// Notification is what an operator asked to send. A nil UserID broadcasts.
type Notification struct {
	Title  string
	Body   string
	UserID *string
	Data   map[string]any
}

// Message is the Expo push message format.
type Message struct {
	To        string         `json:"to"`
	Title     string         `json:"title,omitempty"`
	Body      string         `json:"body,omitempty"`
	Subtitle  string         `json:"subtitle,omitempty"`
	Sound     string         `json:"sound,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	Icon      string         `json:"icon,omitempty"`
}

// Ticket is the gateway's per-message result, in request order.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

const TicketOK = "ok"

type Failure struct {
	Token   string         `json:"token"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Outcome accounts for every non-empty destination of one dispatch.
type Outcome struct {
	Sent            []string  `json:"sent"`
	Failed          []Failure `json:"failed"`
	TransportErrors []string  `json:"transport_errors"`
}

func (o Outcome) Total() int {
	return len(o.Sent) + len(o.Failed)
}

// Success is true only when every message was accepted.
func (o Outcome) Success() bool {
	return len(o.Failed) == 0 && len(o.TransportErrors) == 0
}

// Redact keeps a short prefix of a push token: at most 20 characters and
// never more than half of it, counted in runes.
func Redact(token string) string {
	r := []rune(token)
	n := 20
	if half := len(r) / 2; half < n {
		n = half
	}
	return string(r[:n]) + "..."
}

// RedactIn replaces every occurrence of token in text with its redacted
// form. Gateway error messages quote the token they refer to.
func RedactIn(text, token string) string {
	if token == "" {
		return text
	}
	return strings.ReplaceAll(text, token, Redact(token))
}
