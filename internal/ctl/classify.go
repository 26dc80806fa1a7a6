package ctl

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/threshold"
	"github.com/spf13/cobra"
)

// NewClassifyCommand checks a travel time against segment bounds without
// touching the database.
func NewClassifyCommand() *cobra.Command {
	var b threshold.Bounds

	cmd := &cobra.Command{
		Use:   "classify <travel>",
		Short: "Classify a travel time, for example 45m or 5h50m",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			travel, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}
			if err := b.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			r := b.Classify(travel)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Allowed %.1f to %.1f min\n", b.MinTravelMinutes(), b.MaxTravelMinutes())
			if !r.Violation() {
				fmt.Fprintf(w, "OK: %.1f min, %.1f km/h\n", r.TravelMinutes, r.ComputedSpeedKmh)
				return nil
			}
			fmt.Fprintf(w, "%s: %.1f min (limit %.1f), %.1f km/h\n", r.Classification, r.TravelMinutes, r.ThresholdMinutes, r.ComputedSpeedKmh)
			return nil
		},
	}

	cmd.Flags().Float64Var(&b.DistanceKm, "distance", 0, "road distance in km")
	cmd.Flags().Float64Var(&b.MaxSpeedKmh, "max", 0, "speed limit in km/h")
	cmd.Flags().Float64Var(&b.MinSpeedKmh, "min", 0, "minimum average speed in km/h")
	return cmd
}
