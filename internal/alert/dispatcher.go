package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Gateway delivers a single notification.
type Gateway interface {
	Send(ctx context.Context, n Notification) error
}

// Notifier accepts fired alerts. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, a Alert)
}

// LogGateway records notifications in the log. It stands in for SMS, email
// and radio providers.
type LogGateway struct {
	Logger *slog.Logger
}

func (g LogGateway) Send(_ context.Context, n Notification) error {
	g.Logger.Info("notification sent",
		"id", n.ID,
		"channel", n.Channel,
		"recipient", n.Recipient,
		"subject", n.Subject,
		"message", n.Message,
	)
	return nil
}

// Fanout sends each notification through every gateway and joins the errors.
type Fanout []Gateway

func (f Fanout) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, g := range f {
		if err := g.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher implements Notifier by sending every notification of an alert
// through a Gateway in the background. Failures are logged and counted, never
// retried.
type Dispatcher struct {
	gateway Gateway
	timeout time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A nil clock uses the real clock.
func NewDispatcher(gateway Gateway, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		gateway: gateway,
		timeout: timeout,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Notify stamps each notification with an ID and timestamp and sends it
// asynchronously.
func (d *Dispatcher) Notify(ctx context.Context, a Alert) {
	d.metrics.AlertsFired.WithLabelValues(string(a.Threat.Type)).Inc()
	d.logger.Info("alert fired",
		"threat_type", a.Threat.Type,
		"severity", a.Threat.Severity,
		"generation", a.Generation,
		"notifications", len(a.Notifications),
	)

	for _, n := range a.Notifications {
		n.ID = uuid.NewString()
		n.Timestamp = d.clock.Now().UTC().Format(time.RFC3339)

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.send(ctx, n)
		}()
	}
}

// Wait blocks until every pending notification has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, n Notification) {
	sendCtx := context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, d.timeout)
		defer cancel()
	}

	if err := d.gateway.Send(sendCtx, n); err != nil {
		d.metrics.Notifications.WithLabelValues(string(n.Channel), "error").Inc()
		d.logger.Error("notification delivery failed",
			"error", fmt.Errorf("send %s to %s: %w", n.Channel, n.Recipient, err),
			"id", n.ID,
		)
		return
	}
	d.metrics.Notifications.WithLabelValues(string(n.Channel), "sent").Inc()
}
