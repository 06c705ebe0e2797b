// Package device adapts physical input hardware to the dispatcher: it
// discovers /dev/input nodes matching a keyboard instance's configured id
// patterns, grabs them exclusively, and turns raw evdev key events into
// keyboard.KeyEvent on the host monotonic clock (spec §1 "out of scope",
// given a concrete adapter here; §4.1 "logical time" names the clock
// source a caller must supply).
//
// Grounded on original_source/src/device.h's device_scan/device_grab/
// device_read_event trio, reimplemented over github.com/gvalkov/golang-evdev
// instead of keyd's hand-rolled ioctl wrappers.
package device

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"

	"keyremapd/internal/keyboard"
	"keyremapd/internal/keys"
)

// evKey is the evdev event type carrying keyboard transitions
// (linux/input-event-codes.h EV_KEY).
const evKey = 0x01

// Device wraps one grabbed evdev node.
type Device struct {
	node *evdev.InputDevice
	Name string
	Path string
}

// Scan lists every /dev/input/event* node whose reported name matches one
// of the glob-style patterns from a config's [device] ids=, mirroring
// device_scan's id-matching table (originally per-keyboard ids[], dropped
// from spec.md's distillation but restored in SPEC_FULL.md's config
// section). A nil or empty patterns list matches every keyboard-capable
// node.
func Scan(patterns []string) ([]*Device, error) {
	nodes, err := evdev.ListInputDevices("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("device: scan: %w", err)
	}

	var out []*Device
	for _, n := range nodes {
		if !hasKeyCapability(n) {
			continue
		}
		if len(patterns) > 0 && !matchesAny(patterns, n.Name, n.Fn) {
			continue
		}
		out = append(out, &Device{node: n, Name: n.Name, Path: n.Fn})
	}
	return out, nil
}

// Open opens a single node by path without scanning or capability
// filtering.
func Open(path string) (*Device, error) {
	n, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return &Device{node: n, Name: n.Name, Path: path}, nil
}

func hasKeyCapability(n *evdev.InputDevice) bool {
	caps, ok := n.Capabilities[evdev.CapabilityType{Type: evdev.EV_KEY}]
	return ok && len(caps) > 0
}

func matchesAny(patterns []string, name, path string) bool {
	for _, p := range patterns {
		if p == path {
			return true
		}
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Grab takes exclusive control of the node so events stop reaching every
// other consumer (X11, the console, ...), the same EVIOCGRAB keyd's
// device_grab performs.
func (d *Device) Grab() error {
	if err := d.node.Grab(); err != nil {
		return fmt.Errorf("device: grab %s: %w", d.Path, err)
	}
	return nil
}

func (d *Device) Ungrab() error {
	return d.node.Release()
}

func (d *Device) Close() error {
	return d.node.File.Close()
}

// ReadEvents blocks reading raw evdev events and delivers decoded
// keyboard.KeyEvents to emit, until the device is closed or produces a
// read error (hot-unplug). Non-EV_KEY events (LEDs, SYN, mouse motion on a
// hybrid device) are discarded; this adapter only concerns itself with the
// core's KeyEvent stream.
func (d *Device) ReadEvents(emit func(keyboard.KeyEvent)) error {
	for {
		ev, err := d.node.ReadOne()
		if err != nil {
			return fmt.Errorf("device: read %s: %w", d.Path, err)
		}
		if ev.Type != evKey {
			continue
		}
		// EV_KEY value 2 is autorepeat; the dispatcher has its own
		// repeat/timeout bookkeeping and must not see a third edge.
		if ev.Value == 2 {
			continue
		}
		if ev.Code > 255 {
			continue
		}
		emit(keyboard.KeyEvent{
			Code:      keys.Code(ev.Code),
			Pressed:   ev.Value != 0,
			Timestamp: MonotonicMillis(),
		})
	}
}

// MonotonicMillis reads CLOCK_MONOTONIC directly rather than time.Now(),
// matching §4.1's requirement that Tick be a caller-supplied abstract
// instant independent of wall-clock adjustments. Exported so
// internal/daemon can stamp the synthesized tick-only events it feeds
// back into ProcessEvents on the same clock real device events use.
func MonotonicMillis() keyboard.Tick {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return keyboard.Tick(ts.Sec)*1000 + keyboard.Tick(ts.Nsec)/1_000_000
}

func String(d *Device) string {
	return strings.TrimSpace(fmt.Sprintf("%s (%s)", d.Name, d.Path))
}
