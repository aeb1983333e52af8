package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxGatewayBody = 1 << 20

// Gateway submits one batch and returns one ticket per message, in order.
type Gateway interface {
	Send(ctx context.Context, msgs []Message) ([]Ticket, error)
}

type ExpoClient struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

func NewExpoClient(endpoint, accessToken string, httpClient *http.Client) *ExpoClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ExpoClient{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

func (c *ExpoClient) Send(ctx context.Context, msgs []Message) ([]Ticket, error) {
	payload, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read push gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	return decodeTickets(raw)
}

// decodeTickets accepts both the documented {"data": [...]} envelope and a
// bare ticket array.
func decodeTickets(raw []byte) ([]Ticket, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tickets []Ticket
		if err := json.Unmarshal(trimmed, &tickets); err != nil {
			return nil, fmt.Errorf("failed to decode push gateway response: %w", err)
		}
		return tickets, nil
	}

	var envelope struct {
		Data   []Ticket `json:"data"`
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode push gateway response: %w", err)
	}
	if len(envelope.Data) == 0 && len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("push gateway error %s: %s", envelope.Errors[0].Code, envelope.Errors[0].Message)
	}
	return envelope.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
