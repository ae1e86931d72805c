package cli

import (
	"fmt"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/scenario"
	"github.com/couchcryptid/incident-engine/internal/shelter"
	"github.com/spf13/cobra"
)

func newRiskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Classify an observer's exposure to a scripted threat",
		Args:  cobra.NoArgs,
		RunE:  runRisk,
	}
	cmd.Flags().Float64("lat", 0, "observer latitude")
	cmd.Flags().Float64("lon", 0, "observer longitude")
	cmd.Flags().StringP("threat", "t", string(domain.ThreatEarthquake), "threat kind")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func runRisk(cmd *cobra.Command, _ []string) error {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	kind, _ := cmd.Flags().GetString("threat")

	tt, err := domain.ParseThreatType(kind)
	if err != nil {
		return err
	}

	threat := scenario.Threat(tt)
	observer := domain.Point{Lat: lat, Lon: lon}
	return printJSON(cmd.OutOrStdout(), struct {
		Threat string `json:"threat"`
		domain.RiskAssessment
	}{
		Threat:         threat.Name,
		RiskAssessment: domain.EvaluateRisk(&observer, &threat),
	})
}

func newSheltersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelters",
		Short: "List the shelters nearest to a point",
		Args:  cobra.NoArgs,
		RunE:  runShelters,
	}
	cmd.Flags().Float64("lat", 0, "latitude")
	cmd.Flags().Float64("lon", 0, "longitude")
	cmd.Flags().IntP("count", "c", shelter.DefaultCount, "number of shelters")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func runShelters(cmd *cobra.Command, _ []string) error {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	count, _ := cmd.Flags().GetInt("count")

	p := domain.Point{Lat: lat, Lon: lon}
	if !domain.ValidPoint(p) {
		return fmt.Errorf("%w: %v, %v", domain.ErrMalformedCoordinates, lat, lon)
	}
	if count < 1 {
		return fmt.Errorf("--count must be positive, got %d", count)
	}

	catalogue, err := shelter.Default()
	if err != nil {
		return fmt.Errorf("load shelters: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), catalogue.Nearest(p, count))
}
