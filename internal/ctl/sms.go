package ctl

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/smscodec"
	"github.com/spf13/cobra"
)

// NewSMSCommand groups the offline SMS payload tools.
func NewSMSCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sms",
		Short: "Encode or decode SMS passage reports",
	}
	cmd.AddCommand(newSMSEncodeCommand())
	cmd.AddCommand(newSMSDecodeCommand())
	return cmd
}

type smsEncodeOptions struct {
	checkpost, plate, vehicle, at, phone string
}

func newSMSEncodeCommand() *cobra.Command {
	opts := &smsEncodeOptions{}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Render a passage as an SMS payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if opts.at != "" {
				t, err := parseInstant(opts.at)
				if err != nil {
					return err
				}
				at = t
			}
			cmd.SilenceUsage = true

			s, err := smscodec.Encode(smscodec.Message{
				CheckpostCode:     opts.checkpost,
				Plate:             common.NormalizePlate(opts.plate),
				VehicleType:       common.ParseVehicleType(opts.vehicle),
				CapturedAt:        at,
				RangerPhoneSuffix: smscodec.PhoneSuffix(opts.phone),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.checkpost, "checkpost", "", "checkpost code")
	cmd.Flags().StringVar(&opts.plate, "plate", "", "number plate as read")
	cmd.Flags().StringVar(&opts.vehicle, "type", "car", "vehicle type")
	cmd.Flags().StringVar(&opts.at, "at", "", "capture time, RFC 3339 or unix seconds (default now)")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "ranger phone number")
	return cmd
}

func newSMSDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <payload>",
		Short: "Show the fields of an SMS payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			m, err := smscodec.Decode(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Checkpost:   %s\n", m.CheckpostCode)
			fmt.Fprintf(w, "Plate:       %s\n", m.Plate)
			fmt.Fprintf(w, "Vehicle:     %s\n", m.VehicleType)
			fmt.Fprintf(w, "Captured at: %s\n", m.CapturedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "Phone:       ...%s\n", m.RangerPhoneSuffix)
			return nil
		},
	}
}

func parseInstant(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("capture time %q: want RFC 3339 or unix seconds", s)
	}
	return t, nil
}
