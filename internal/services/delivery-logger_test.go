package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	events []any
	err    error
}

func (f *fakePublisher) PublishJSON(_ context.Context, v any) error {
	f.events = append(f.events, v)
	return f.err
}

func TestBuildDeliveryLog_RedactsTokens(t *testing.T) {
	dests := push.ClassifyAll([]push.Destination{
		{Token: tokenA, Platform: push.PlatformIOS, UserID: "u1"},
		{Token: "fcm-token-0123456789abcdefghijklmnop", Platform: push.PlatformAndroid, UserID: "u2"},
	})
	outcome := push.Outcome{
		Sent:            []string{tokenA},
		Failed:          []push.Failure{{Token: dests[1].Token, Error: "InvalidCredentials"}},
		TransportErrors: []string{"batch 2: timeout"},
	}

	entry := BuildDeliveryLog(push.Notification{Title: "T", Body: "B"}, dests, outcome)

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), tokenA)
	assert.NotContains(t, string(raw), dests[1].Token)

	assert.Equal(t, 1, entry.SentCount)
	assert.Equal(t, 1, entry.FailedCount)
	assert.Equal(t, 2, entry.TotalTargets)
	assert.Equal(t, "batch 2: timeout", entry.Errors[0])
	assert.Equal(t, push.Redact(dests[1].Token)+": InvalidCredentials", entry.Errors[1])

	assert.True(t, entry.Tokens[0].IsExpo)
	assert.False(t, entry.Tokens[0].IsFCM)
	assert.False(t, entry.Tokens[1].IsExpo)
	assert.True(t, entry.Tokens[1].IsFCM)
	assert.Equal(t, "u2", entry.Tokens[1].UserID)
}

func TestDeliveryLogger_Record_SwallowsFailures(t *testing.T) {
	logger := zerolog.Nop()
	store := &memoryLogStore{err: errors.New("insert failed")}
	publisher := &fakePublisher{err: errors.New("broker down")}
	l := NewDeliveryLogger(store, publisher, &logger)

	entry := l.Record(context.Background(), push.Notification{Title: "T", Body: "B"}, nil, push.Outcome{})

	require.NotNil(t, entry)
	assert.Len(t, publisher.events, 1)
	assert.Empty(t, store.entries)
}

func TestDeliveryLogger_RecordAndList(t *testing.T) {
	logger := zerolog.Nop()
	store := &memoryLogStore{}
	publisher := &fakePublisher{}
	l := NewDeliveryLogger(store, publisher, &logger)

	entry := l.Record(context.Background(), push.Notification{Title: "T", Body: "B"}, nil, push.Outcome{})

	logs, total, err := l.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, entry.ID, logs[0].ID)
	assert.Same(t, entry, publisher.events[0])
}

func TestDeliveryLogger_Record_IgnoresCallerCancellation(t *testing.T) {
	logger := zerolog.Nop()
	store := &memoryLogStore{}
	l := NewDeliveryLogger(store, nil, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry := l.Record(ctx, push.Notification{Title: "T", Body: "B"}, nil, push.Outcome{Sent: []string{tokenA}})

	require.Len(t, store.entries, 1)
	assert.Equal(t, entry.ID, store.entries[0].ID)
}
