package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyremapd/internal/device"
)

func newDevicesCmd() *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List keyboard-capable /dev/input nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := device.Scan(patterns)
			if err != nil {
				return fmt.Errorf("devices: %w", err)
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no keyboard-capable devices found")
				return nil
			}
			for _, d := range found {
				fmt.Fprintln(cmd.OutOrStdout(), device.String(d))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "match", nil, "only list devices whose name/path matches one of these glob patterns")

	return cmd
}
