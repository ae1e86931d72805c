package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-engine/internal/alert"
	"github.com/couchcryptid/incident-engine/internal/config"
	"github.com/couchcryptid/incident-engine/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// SinkName labels the Kafka snapshot sink in logs and metrics.
const SinkName = "kafka"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

func newWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
}

// SnapshotWriter publishes snapshots to the snapshot topic.
// It implements pipeline.Sink.
type SnapshotWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewSnapshotWriter creates a Kafka producer for the configured snapshot topic.
func NewSnapshotWriter(cfg *config.Config, logger *slog.Logger) *SnapshotWriter {
	return &SnapshotWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaSnapshotTopic), logger: logger}
}

func (w *SnapshotWriter) Name() string { return SinkName }

// Publish writes one snapshot. Snapshots are keyed by generation so a cycle
// stays ordered within a partition.
func (w *SnapshotWriter) Publish(ctx context.Context, snap domain.Snapshot) error {
	msg, err := snapshotMessage(snap)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *SnapshotWriter) Close() error {
	return w.writer.Close()
}

// AlertWriter publishes notifications to the alert topic.
// It implements alert.Gateway.
type AlertWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	return &AlertWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic), logger: logger}
}

func (w *AlertWriter) Send(ctx context.Context, n alert.Notification) error {
	msg, err := notificationMessage(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write notification %s: %w", n.ID, err)
	}
	w.logger.Debug("notification published", "id", n.ID, "channel", n.Channel)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

func snapshotMessage(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot %d: %w", snap.Sequence, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatUint(snap.Generation, 10)),
		Value: data,
		Time:  snap.Timestamp,
		Headers: []kafkago.Header{
			{Key: "phase", Value: []byte(snap.Phase.String())},
			{Key: "sequence", Value: []byte(strconv.FormatUint(snap.Sequence, 10))},
			{Key: "emitted_at", Value: []byte(snap.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}

func notificationMessage(n alert.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "channel", Value: []byte(n.Channel)},
			{Key: "threat_type", Value: []byte(n.ThreatType)},
		},
	}, nil
}
