package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingGateway struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (g *recordingGateway) Send(_ context.Context, n Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, n)
	return g.err
}

func (g *recordingGateway) all() []Notification {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Notification(nil), g.sent...)
}

func floodAlert(t *testing.T) Alert {
	t.Helper()
	a, ok := NewPolicy().Evaluate(1, domain.PhaseAssessment, threatOf(domain.ThreatFlood, domain.SeverityExtreme, "Kerala Backwaters"))
	require.True(t, ok)
	return a
}

func TestDispatcher_SendsEveryNotification(t *testing.T) {
	gw := &recordingGateway{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.August, 1, 9, 30, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	d := NewDispatcher(gw, time.Second, clock, discardLogger(), metrics)

	d.Notify(context.Background(), floodAlert(t))
	d.Wait()

	sent := gw.all()
	require.Len(t, sent, 2)
	for _, n := range sent {
		_, err := uuid.Parse(n.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-08-01T09:30:00Z", n.Timestamp)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlertsFired.WithLabelValues("FLOOD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("RADIO", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("SMS", "sent")))
}

func TestDispatcher_FailuresAreCounted(t *testing.T) {
	gw := &recordingGateway{err: errors.New("provider down")}
	metrics := observability.NewMetricsForTesting()
	d := NewDispatcher(gw, 0, nil, discardLogger(), metrics)

	d.Notify(context.Background(), floodAlert(t))
	d.Wait()

	assert.Len(t, gw.all(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("SMS", "error")))
}

func TestFanout(t *testing.T) {
	ok := &recordingGateway{}
	failing := &recordingGateway{err: errors.New("nope")}
	f := Fanout{ok, failing, LogGateway{Logger: discardLogger()}}

	err := f.Send(context.Background(), Notification{Channel: ChannelSMS, Recipient: RecipientNDRF})
	require.Error(t, err)
	assert.Len(t, ok.all(), 1)
	assert.Len(t, failing.all(), 1)

	require.NoError(t, Fanout{ok}.Send(context.Background(), Notification{}))
}
