package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tokenA = "ExponentPushToken[aaaaaaaaaaaaaaaaaaaaaa]"
	tokenB = "ExponentPushToken[bbbbbbbbbbbbbbbbbbbbbb]"
)

type fakeSource struct {
	dests  []push.Destination
	err    error
	userID *string
}

func (f *fakeSource) ListDestinations(_ context.Context, userID *string) ([]push.Destination, error) {
	f.userID = userID
	return f.dests, f.err
}

type memoryLogStore struct {
	mu      sync.Mutex
	entries []*models.DeliveryLog
	err     error
}

func (m *memoryLogStore) InsertDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryLogStore) ListDeliveryLogs(_ context.Context, page, pageSize int) ([]models.DeliveryLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DeliveryLog, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out, len(out), nil
}

type memoryStatusStore struct {
	saved map[string]*push.DeliveryStatus
	err   error
}

func (m *memoryStatusStore) Save(ctx context.Context, status *push.DeliveryStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string]*push.DeliveryStatus{}
	}
	m.saved[status.LogID] = status
	return nil
}

func (m *memoryStatusStore) Get(_ context.Context, logID string) (*push.DeliveryStatus, error) {
	if s, ok := m.saved[logID]; ok {
		return s, nil
	}
	return nil, errs.ErrNotFound
}

// expoServer answers like the Expo gateway, rejecting tokens listed in
// unregistered.
func expoServer(t *testing.T, unregistered ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msgs []push.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msgs))

		tickets := make([]push.Ticket, len(msgs))
		for i, m := range msgs {
			tickets[i] = push.Ticket{Status: push.TicketOK, ID: "ticket"}
			for _, bad := range unregistered {
				if m.To == bad {
					tickets[i] = push.Ticket{
						Status:  "error",
						Message: `"` + bad + `" is not a registered push notification recipient`,
						Details: map[string]any{"error": "DeviceNotRegistered"},
					}
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": tickets})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newNotificationService(t *testing.T, source DestinationSource, gatewayURL string) (*NotificationService, *memoryLogStore, *memoryStatusStore) {
	t.Helper()
	logger := zerolog.Nop()
	gateway := push.NewExpoClient(gatewayURL, "", http.DefaultClient)
	dispatcher := push.NewDispatcher(gateway, push.DispatcherConfig{DisplayName: "Modli", AndroidIcon: "notification_icon"}, &logger)

	logs := &memoryLogStore{}
	statuses := &memoryStatusStore{}
	svc := NewNotificationService(source, dispatcher, NewDeliveryLogger(logs, nil, &logger), statuses, &logger)
	return svc, logs, statuses
}

func TestNotificationService_Send_PartialFailure(t *testing.T) {
	srv := expoServer(t, tokenB)
	source := &fakeSource{dests: []push.Destination{
		{Token: tokenA, Platform: push.PlatformIOS, UserID: "u1"},
		{Token: tokenB, Platform: push.PlatformAndroid, UserID: "u2"},
	}}
	svc, logs, statuses := newNotificationService(t, source, srv.URL)

	result, err := svc.Send(context.Background(), push.Notification{Title: "Hi", Body: "There"})
	require.NoError(t, err)

	assert.Equal(t, []string{tokenA}, result.Outcome.Sent)
	require.Len(t, result.Outcome.Failed, 1)
	assert.Equal(t, tokenB, result.Outcome.Failed[0].Token)
	assert.False(t, result.Outcome.Success())

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, 1, entry.SentCount)
	assert.Equal(t, 1, entry.FailedCount)
	assert.Equal(t, 2, entry.TotalTargets)
	assert.Nil(t, entry.TargetUserID)
	require.Len(t, entry.Errors, 1)
	assert.True(t, strings.HasPrefix(entry.Errors[0], push.Redact(tokenB)+": "))

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), tokenB)

	require.Len(t, entry.Tokens, 2)
	assert.True(t, entry.Tokens[0].IsExpo)
	assert.Equal(t, "android", entry.Tokens[1].Platform)

	status, err := svc.Status(context.Background(), entry.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, status.SuccessCount)
	assert.Equal(t, 1, status.FailureCount)
	assert.Contains(t, statuses.saved, entry.ID.String())
	for _, r := range status.Results {
		assert.NotContains(t, r.Error, tokenB)
	}
}

func TestNotificationService_Send_TargetsUser(t *testing.T) {
	srv := expoServer(t)
	source := &fakeSource{dests: []push.Destination{{Token: tokenA, Platform: push.PlatformIOS, UserID: "u1"}}}
	svc, logs, _ := newNotificationService(t, source, srv.URL)

	userID := "u1"
	result, err := svc.Send(context.Background(), push.Notification{Title: "Hi", Body: "There", UserID: &userID})
	require.NoError(t, err)

	require.NotNil(t, source.userID)
	assert.Equal(t, "u1", *source.userID)
	assert.True(t, result.Outcome.Success())
	require.NotNil(t, logs.entries[0].TargetUserID)
	assert.Equal(t, "u1", *logs.entries[0].TargetUserID)
}

func TestNotificationService_Send_NoDestinations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called without destinations")
	}))
	defer srv.Close()

	svc, logs, _ := newNotificationService(t, &fakeSource{}, srv.URL)

	result, err := svc.Send(context.Background(), push.Notification{Title: "Hi", Body: "There"})
	require.NoError(t, err)

	assert.False(t, result.Outcome.Success())
	assert.Equal(t, []string{push.ErrNoDestinations}, result.Errors())
	require.Len(t, logs.entries, 1)
	assert.Equal(t, 0, logs.entries[0].TotalTargets)
}

func TestNotificationService_Send_TokenStoreFailure(t *testing.T) {
	source := &fakeSource{err: errs.Upstream("token store", errors.New("connection refused"))}
	svc, logs, _ := newNotificationService(t, source, "http://127.0.0.1:0")

	_, err := svc.Send(context.Background(), push.Notification{Title: "Hi", Body: "There"})
	assert.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	assert.Empty(t, logs.entries)
}

func TestNotificationService_Send_StatusCacheFailureIsNotFatal(t *testing.T) {
	srv := expoServer(t)
	source := &fakeSource{dests: []push.Destination{{Token: tokenA, Platform: push.PlatformIOS}}}
	svc, _, statuses := newNotificationService(t, source, srv.URL)
	statuses.err = errors.New("redis down")

	result, err := svc.Send(context.Background(), push.Notification{Title: "Hi", Body: "There"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Log.SentCount)
}

// cancelingDispatcher delivers every destination and then cancels the
// request context, like an operator disconnecting mid-send.
type cancelingDispatcher struct {
	cancel context.CancelFunc
}

func (d *cancelingDispatcher) Dispatch(_ context.Context, _ push.Notification, dests []push.Destination) push.Outcome {
	var outcome push.Outcome
	for _, dest := range dests {
		outcome.Sent = append(outcome.Sent, dest.Token)
	}
	d.cancel()
	return outcome
}

func TestNotificationService_Send_PersistsAfterCallerCancels(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{dests: []push.Destination{{Token: tokenA, Platform: push.PlatformIOS}}}
	logs := &memoryLogStore{}
	statuses := &memoryStatusStore{}
	svc := NewNotificationService(source, &cancelingDispatcher{cancel: cancel}, NewDeliveryLogger(logs, nil, &logger), statuses, &logger)

	result, err := svc.Send(ctx, push.Notification{Title: "Hi", Body: "There"})
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.Equal(t, 1, result.Log.SentCount)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, result.Log.ID, logs.entries[0].ID)
	assert.Contains(t, statuses.saved, result.Log.ID.String())
}

func TestNotificationService_NotConfigured(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewNotificationService(nil, nil, nil, nil, &logger)

	_, err := svc.Send(context.Background(), push.Notification{Title: "Hi", Body: "There"})
	assert.ErrorIs(t, err, errs.ErrNotConfigured)
}
