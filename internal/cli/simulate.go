package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/incident-engine/internal/alert"
	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/engine"
	"github.com/couchcryptid/incident-engine/internal/enrichment"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/couchcryptid/incident-engine/internal/shelter"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the incident cycle offline and print each snapshot",
		Long: `Run the incident state machine on a simulated clock using the mock
oracles, printing one JSON snapshot per line. Oracle results are merged
before the next tick so output is reproducible.`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}
	cmd.Flags().IntP("ticks", "n", domain.CycleLength+1, "number of ticks to run")
	cmd.Flags().StringP("inject", "i", string(domain.ThreatEarthquake), "threat kind to simulate")
	cmd.Flags().Bool("zero-retention", false, "wipe incident data at the end of each cycle")
	cmd.Flags().Duration("interval", 2*time.Second, "simulated time between ticks")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ticks, _ := cmd.Flags().GetInt("ticks")
	inject, _ := cmd.Flags().GetString("inject")
	zero, _ := cmd.Flags().GetBool("zero-retention")
	interval, _ := cmd.Flags().GetDuration("interval")

	if ticks < 1 {
		return fmt.Errorf("--ticks must be positive, got %d", ticks)
	}
	kind, err := domain.ParseThreatType(inject)
	if err != nil {
		return err
	}

	logger := commandLogger(cmd)
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(time.Now().UTC().Truncate(time.Second))
	domain.SetClock(clock)
	defer domain.SetClock(nil)

	coordinator := enrichment.NewCoordinator(nil, nil, 0, logger, metrics)
	dispatcher := alert.NewDispatcher(alert.LogGateway{Logger: logger}, time.Second, clock, logger, metrics)

	eng := engine.New(engine.Options{
		Clock:         clock,
		Logger:        logger,
		Metrics:       metrics,
		Enricher:      coordinator,
		Notifier:      dispatcher,
		Shelters:      shelter.MustDefault(),
		ZeroRetention: zero,
		DefaultThreat: kind,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	ctx := cmd.Context()

	for i := 0; i < ticks; i++ {
		clock.Advance(interval)
		snap := eng.Advance(ctx)
		coordinator.Wait()
		dispatcher.Wait()

		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	return nil
}
