package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"keyremapd/internal/config"
	"keyremapd/internal/daemon"
	"keyremapd/internal/device"
	"keyremapd/internal/ipc"
	"keyremapd/internal/keyboard"
	"keyremapd/internal/logging"
	"keyremapd/internal/privdrop"
	"keyremapd/internal/vdevice"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var logComponents []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grab configured devices and run the remapping daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(v.GetString("config"), v.GetString("socket"), logComponents)
		},
	}

	cmd.Flags().StringSliceVar(&logComponents, "log", nil,
		"enable logging for these components (dispatcher,device,vdevice,ipc,config,macro,command), or 'all'")

	return cmd
}

func runDaemon(configPath, socketPath string, logComponents []string) error {
	logger := logging.New(10000)
	applyLogComponents(logger, logComponents)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("keyremapd: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return fmt.Errorf("keyremapd: %w", err)
	}
	patterns, err := config.Devices(data)
	if err != nil {
		return fmt.Errorf("keyremapd: %w", err)
	}

	devices, err := device.Scan(patterns)
	if err != nil {
		return fmt.Errorf("keyremapd: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("keyremapd: no matching input devices found for %v", patterns)
	}
	for _, d := range devices {
		logger.Infof(logging.ComponentDevice, "grabbing %s", device.String(d))
	}

	// kbd is filled in below, but ipc.Server needs an eval callback that
	// closes over it up front; that callback only fires once the daemon is
	// serving, by which point kbd is set.
	var kbd *keyboard.Keyboard

	ipcServer, err := ipc.Listen(socketPath, func(expr string) (bool, error) {
		return kbd.Eval(expr, config.Merge)
	})
	if err != nil {
		return fmt.Errorf("keyremapd: %w", err)
	}

	sink, err := vdevice.New("keyremapd", func(layer *keyboard.Layer, active bool) {
		ipcServer.Publish(layer.Name, active)
	})
	if err != nil {
		return fmt.Errorf("keyremapd: %w", err)
	}
	defer sink.Close()
	vdevice.OnError = func(err error) {
		logger.Errorf(logging.ComponentVDevice, "%v", err)
	}

	runner := privdrop.New(cfg.Commands)
	kbd = keyboard.NewKeyboard(cfg, sink, runner)
	kbd.Logger = func(format string, args ...any) {
		logger.Warnf(logging.ComponentCommand, format, args...)
	}

	d := daemon.New(kbd, devices, ipcServer, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("keyremapd: %w", err)
	}
	return nil
}

var allLogComponents = []logging.Component{
	logging.ComponentDispatcher,
	logging.ComponentDevice,
	logging.ComponentVDevice,
	logging.ComponentIPC,
	logging.ComponentConfig,
	logging.ComponentMacro,
	logging.ComponentCommand,
}

func applyLogComponents(logger *logging.Logger, names []string) {
	for _, name := range names {
		if name == "all" {
			logger.EnableAll(allLogComponents...)
			return
		}
	}
	table := map[string]logging.Component{
		"dispatcher": logging.ComponentDispatcher,
		"device":     logging.ComponentDevice,
		"vdevice":    logging.ComponentVDevice,
		"ipc":        logging.ComponentIPC,
		"config":     logging.ComponentConfig,
		"macro":      logging.ComponentMacro,
		"command":    logging.ComponentCommand,
	}
	for _, name := range names {
		if c, ok := table[name]; ok {
			logger.Enable(c)
		}
	}
}
