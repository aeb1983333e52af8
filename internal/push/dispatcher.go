package push

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 90
	DefaultTimeout   = 20 * time.Second

	ErrNoDestinations     = "no registered destinations"
	unknownGatewayFailure = "unknown push gateway error"

	androidChannel = "default"
	defaultSound   = "default"
	appNameKey     = "app_name"
)

type DispatcherConfig struct {
	BatchSize   int
	Workers     int
	Timeout     time.Duration
	DisplayName string
	AndroidIcon string
}

type Dispatcher struct {
	gateway Gateway
	cfg     DispatcherConfig
	logger  *zerolog.Logger
}

func NewDispatcher(gateway Gateway, cfg DispatcherConfig, logger *zerolog.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}
}

type batchResult struct {
	sent           []string
	failed         []Failure
	transportError string
}

// Dispatch sends n to every destination with a non-empty token. A failing
// batch marks only its own messages failed; the remaining batches still run.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification, dests []Destination) Outcome {
	msgs := make([]Message, 0, len(dests))
	for _, dest := range dests {
		if dest.Token == "" {
			continue
		}
		msgs = append(msgs, d.buildMessage(n, dest))
	}

	if len(msgs) == 0 {
		return Outcome{
			Sent:            []string{},
			Failed:          []Failure{},
			TransportErrors: []string{ErrNoDestinations},
		}
	}

	batches := chunk(msgs, d.cfg.BatchSize)
	results := make([]batchResult, len(batches))

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = d.sendBatch(ctx, i+1, batch)
			return nil
		})
	}
	_ = g.Wait()

	outcome := Outcome{
		Sent:            make([]string, 0, len(msgs)),
		Failed:          []Failure{},
		TransportErrors: []string{},
	}
	for _, r := range results {
		outcome.Sent = append(outcome.Sent, r.sent...)
		outcome.Failed = append(outcome.Failed, r.failed...)
		if r.transportError != "" {
			outcome.TransportErrors = append(outcome.TransportErrors, r.transportError)
		}
	}

	d.logger.Info().
		Int("batches", len(batches)).
		Int("sent", len(outcome.Sent)).
		Int("failed", len(outcome.Failed)).
		Msg("push dispatch completed")

	return outcome
}

func (d *Dispatcher) sendBatch(ctx context.Context, number int, batch []Message) batchResult {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	var result batchResult

	tickets, err := d.gateway.Send(ctx, batch)
	if err != nil {
		d.logger.Warn().Err(err).Int("batch", number).Int("size", len(batch)).Msg("push batch failed")
		result.transportError = fmt.Sprintf("batch %d: %s", number, err)
		for _, msg := range batch {
			result.failed = append(result.failed, Failure{Token: msg.To, Error: err.Error()})
		}
		return result
	}

	for i, msg := range batch {
		if i < len(tickets) && tickets[i].Status == TicketOK {
			result.sent = append(result.sent, msg.To)
			continue
		}

		failure := Failure{Token: msg.To, Error: unknownGatewayFailure}
		if i < len(tickets) {
			failure.Error = ticketError(tickets[i])
			failure.Details = tickets[i].Details
		}
		result.failed = append(result.failed, failure)
	}
	return result
}

func (d *Dispatcher) buildMessage(n Notification, dest Destination) Message {
	data := make(map[string]any, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	data[appNameKey] = d.cfg.DisplayName

	msg := Message{
		To:       dest.Token,
		Title:    n.Title,
		Body:     n.Body,
		Subtitle: d.cfg.DisplayName,
		Sound:    defaultSound,
		Data:     data,
	}
	if dest.Platform == PlatformAndroid {
		msg.Icon = d.cfg.AndroidIcon
		msg.ChannelID = androidChannel
	}
	return msg
}

func ticketError(t Ticket) string {
	if t.Message != "" {
		return t.Message
	}
	if code, ok := t.Details["error"].(string); ok && code != "" {
		return code
	}
	return unknownGatewayFailure
}

func chunk(msgs []Message, size int) [][]Message {
	batches := make([][]Message, 0, (len(msgs)+size-1)/size)
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		batches = append(batches, msgs[start:end])
	}
	return batches
}
