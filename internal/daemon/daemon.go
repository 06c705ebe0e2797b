// Package daemon supervises one running instance: the grabbed input
// devices, the dispatcher, the IPC server and the virtual output sink,
// under a single errgroup the way the teacher's internal/emulator wires
// CPU/PPU/APU/Input around one MasterClock and one Logger. Where the
// teacher steps components against a cycle-accurate clock, this package
// waits on whichever comes first: a real device event or the dispatcher's
// next scheduled deadline (internal/clock.Scheduler).
package daemon

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"keyremapd/internal/clock"
	"keyremapd/internal/device"
	"keyremapd/internal/ipc"
	"keyremapd/internal/keyboard"
	"keyremapd/internal/logging"
)

// Daemon is one supervised keyremapd instance.
type Daemon struct {
	Keyboard  *keyboard.Keyboard
	Devices   []*device.Device
	IPC       *ipc.Server
	Logger    *logging.Logger
	Scheduler *clock.Scheduler
}

// New wires a Daemon over an already-constructed Keyboard, its grabbed
// devices and a listening IPC server.
func New(kbd *keyboard.Keyboard, devices []*device.Device, ipcServer *ipc.Server, logger *logging.Logger) *Daemon {
	return &Daemon{
		Keyboard:  kbd,
		Devices:   devices,
		IPC:       ipcServer,
		Logger:    logger,
		Scheduler: clock.NewScheduler(),
	}
}

// Run grabs every device, serves IPC, and drives the dispatcher until ctx
// is cancelled or a device/IPC goroutine fails. The first error from any
// goroutine cancels the rest (errgroup.WithContext), mirroring the
// teacher's pattern of letting one failed subsystem tear down the whole
// emulator step rather than limping on with partial state.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	events := make(chan keyboard.KeyEvent, 256)

	for _, dev := range d.Devices {
		dev := dev
		if err := dev.Grab(); err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
		g.Go(func() error {
			defer dev.Ungrab()
			err := dev.ReadEvents(func(ev keyboard.KeyEvent) {
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			})
			if ctx.Err() != nil {
				return nil
			}
			d.Logger.Errorf(logging.ComponentDevice, "device %s: %v", device.String(dev), err)
			return err
		})
	}

	g.Go(func() error {
		err := d.IPC.Serve()
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error { return d.dispatch(ctx, events) })

	g.Go(func() error {
		<-ctx.Done()
		d.IPC.Close()
		return ctx.Err()
	})

	return g.Wait()
}

// dispatch is the single goroutine that ever touches d.Keyboard, honoring
// the core's single-threaded, cooperative contract (package doc on
// keyboard.Keyboard). It feeds real device events straight through and
// re-arms a wait for whatever delay ProcessEvents asks for, synthesizing
// the code-0 tick event §5/§6 describe when nothing else happens first. A
// tick that arrives after a newer event already reset the wait is
// harmless: the dispatcher's own timeout bookkeeping (calculateMainLoopTimeout)
// treats an event with nothing due as a no-op, so no generation-counting
// is needed to discard a stale one.
func (d *Daemon) dispatch(ctx context.Context, events <-chan keyboard.KeyEvent) error {
	tick := make(chan struct{}, 1)

	armTick := func(delay keyboard.Tick) {
		if delay <= 0 {
			return
		}
		go func() {
			if err := d.Scheduler.Wait(ctx, time.Duration(delay)*time.Millisecond); err != nil {
				return
			}
			select {
			case tick <- struct{}{}:
			default:
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			armTick(d.Keyboard.ProcessEvents([]keyboard.KeyEvent{ev}))

		case <-tick:
			ev := keyboard.KeyEvent{Code: 0, Pressed: false, Timestamp: device.MonotonicMillis()}
			armTick(d.Keyboard.ProcessEvents([]keyboard.KeyEvent{ev}))
		}
	}
}
