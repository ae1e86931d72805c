package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/incident-engine/internal/alert"
	"github.com/couchcryptid/incident-engine/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		ID:            "0c7d3f0e-1b9a-4a57-9f7e-0a1f1bb2c001",
		Sequence:      42,
		Generation:    3,
		Tick:          7,
		Phase:         domain.PhaseAssessment,
		PhaseTitle:    domain.PhaseAssessment.Title(),
		Timestamp:     time.Date(2024, time.July, 30, 2, 0, 0, 0, time.UTC),
		Content:       map[string]string{"status": "ok"},
		SeverityLevel: "EXTREME",
		SeverityColor: "#000000",
	}
}

func headerMap(msg kafkago.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestSnapshotMessage(t *testing.T) {
	snap := testSnapshot()

	msg, err := snapshotMessage(snap)
	require.NoError(t, err)

	assert.Equal(t, []byte("3"), msg.Key)
	assert.Equal(t, snap.Timestamp, msg.Time)
	assert.Equal(t, map[string]string{
		"phase":      "ASSESSMENT",
		"sequence":   "42",
		"emitted_at": "2024-07-30T02:00:00Z",
	}, headerMap(msg))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ASSESSMENT", decoded["phase"])
	assert.Equal(t, "#000000", decoded["severityColor"])
}

func TestSnapshotMessage_Unserializable(t *testing.T) {
	snap := testSnapshot()
	snap.Content = make(chan int)

	_, err := snapshotMessage(snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize snapshot 42")
}

func TestSnapshotWriter_Publish(t *testing.T) {
	fw := &fakeWriter{}
	w := &SnapshotWriter{writer: fw, logger: discardLogger()}

	assert.Equal(t, SinkName, w.Name())
	require.NoError(t, w.Publish(context.Background(), testSnapshot()))
	require.Len(t, fw.msgs, 1)

	fw.err = errors.New("leader not available")
	require.Error(t, w.Publish(context.Background(), testSnapshot()))

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestAlertWriter_Send(t *testing.T) {
	fw := &fakeWriter{}
	w := &AlertWriter{writer: fw, logger: discardLogger()}

	n := alert.Notification{
		ID:         "n-1",
		Channel:    alert.ChannelSMS,
		Recipient:  "+91-98765-43210",
		Message:    "EVACUATE NOW",
		ThreatType: domain.ThreatFlood,
		Generation: 2,
	}
	require.NoError(t, w.Send(context.Background(), n))
	require.Len(t, fw.msgs, 1)

	msg := fw.msgs[0]
	assert.Equal(t, []byte("n-1"), msg.Key)
	assert.Equal(t, map[string]string{"channel": "SMS", "threat_type": "FLOOD"}, headerMap(msg))

	var decoded alert.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, n, decoded)

	fw.err = errors.New("broker down")
	err := w.Send(context.Background(), n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n-1")
}
