package push

import "time"

type Result struct {
	Token    string   `json:"token"`
	Platform Platform `json:"platform"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
}

// DeliveryStatus is the per-token view of one dispatch, keyed by its log ID.
// Tokens are redacted.
type DeliveryStatus struct {
	LogID        string    `json:"log_id"`
	TotalTokens  int       `json:"total_tokens"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Results      []Result  `json:"results"`
	CompletedAt  time.Time `json:"completed_at"`
}

func NewDeliveryStatus(logID string, dests []Destination, outcome Outcome) *DeliveryStatus {
	platforms := make(map[string]Platform, len(dests))
	for _, d := range dests {
		platforms[d.Token] = d.Platform
	}

	results := make([]Result, 0, outcome.Total())
	for _, token := range outcome.Sent {
		results = append(results, Result{Token: Redact(token), Platform: platforms[token], Success: true})
	}
	for _, f := range outcome.Failed {
		results = append(results, Result{Token: Redact(f.Token), Platform: platforms[f.Token], Error: RedactIn(f.Error, f.Token)})
	}

	return &DeliveryStatus{
		LogID:        logID,
		TotalTokens:  outcome.Total(),
		SuccessCount: len(outcome.Sent),
		FailureCount: len(outcome.Failed),
		Results:      results,
		CompletedAt:  time.Now().UTC(),
	}
}
