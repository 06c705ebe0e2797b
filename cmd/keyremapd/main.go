// Command keyremapd is the daemon's entry point: a cobra root command
// wiring a config file (and viper-layered flags/env overrides) through to
// internal/daemon, plus operator subcommands for listing candidate
// devices, validating a config and poking the running daemon's IPC socket.
// Viper resolves the --config and --socket settings from flags or
// KEYREMAPD_* environment variables, following the spf13/cobra +
// spf13/viper pairing of the bnema-uinputd-go/bnema-waymon manifests, in
// place of the teacher's own flat flag.FlagSet (cmd/emulator/main.go).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "keyremapd",
		Short: "Remapping daemon: layers, chords, overloads, macros",
	}

	root.PersistentFlags().String("config", "/etc/keyremapd/keyremapd.toml", "path to the TOML config file")
	root.PersistentFlags().String("socket", "/var/run/keyremapd.sock", "path to the control-surface Unix socket")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("socket", root.PersistentFlags().Lookup("socket"))
	v.SetEnvPrefix("KEYREMAPD")
	v.AutomaticEnv()

	root.AddCommand(
		newRunCmd(v),
		newValidateCmd(v),
		newDevicesCmd(),
		newEvalCmd(v),
	)

	return root
}
