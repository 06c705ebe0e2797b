// Package vdevice implements keyboard.OutputSink over a synthetic
// keyboard and relative-mouse device (spec §4.2 OutputSink, given a
// concrete adapter backed by github.com/ThomasT75/uinput). It also owns
// the SCROLL/SCROLL_TOGGLE pointer path: §3 describes those ops as arming
// a scroll-mode flag on the core, but leaves the actual wheel-event
// synthesis to "outside the core" - this package is that outside.
package vdevice

import (
	"fmt"
	"sync"

	"github.com/ThomasT75/uinput"

	"keyremapd/internal/keyboard"
	"keyremapd/internal/keys"
)

// Sink drives one uinput keyboard + mouse pair. Scroll mode is set through
// SetScrollMode and consumed by Move; this package does not itself read raw
// mouse deltas, and nothing in this repository calls SetScrollMode or Move.
type Sink struct {
	mu sync.Mutex

	kb    uinput.Keyboard
	mouse uinput.Mouse

	onLayerChange func(layer *keyboard.Layer, active bool)

	scrollActive bool
	sensitivity  int
}

// New creates the virtual keyboard and mouse nodes. name identifies the
// devices to the host (shown by `devices` listings, udev rules, etc.).
func New(name string, onLayerChange func(layer *keyboard.Layer, active bool)) (*Sink, error) {
	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte(name+"-kbd"))
	if err != nil {
		return nil, fmt.Errorf("vdevice: create keyboard: %w", err)
	}
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte(name+"-mouse"))
	if err != nil {
		kb.Close()
		return nil, fmt.Errorf("vdevice: create mouse: %w", err)
	}
	return &Sink{kb: kb, mouse: mouse, onLayerChange: onLayerChange}, nil
}

// SendKey implements keyboard.OutputSink.
func (s *Sink) SendKey(code keys.Code, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if pressed {
		err = s.kb.KeyDown(int(code))
	} else {
		err = s.kb.KeyUp(int(code))
	}
	if err != nil {
		// A synthesis failure here means the uinput node went away
		// (module unload, permissions); nothing meaningful to retry at
		// this layer, so it's surfaced to whatever logger the daemon
		// wired in via a package-level hook rather than panicking -
		// losing one edge is not an invariant violation (§7).
		s.reportError(fmt.Errorf("vdevice: send key %d: %w", code, err))
	}
}

// OnLayerChange implements keyboard.OutputSink.
func (s *Sink) OnLayerChange(layer *keyboard.Layer, active bool) {
	if s.onLayerChange != nil {
		s.onLayerChange(layer, active)
	}
}

// SetScrollMode arms or disarms the pointer translation Move performs. The
// core's own SCROLL/SCROLL_TOGGLE state stays inside keyboard.Keyboard and
// is not forwarded here.
func (s *Sink) SetScrollMode(active bool, sensitivity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollActive = active
	s.sensitivity = sensitivity
}

// Move is fed raw relative mouse deltas from a hybrid keyboard+pointer
// device. While scroll mode is armed it converts vertical motion into
// wheel clicks scaled by sensitivity (higher sensitivity means slower
// scrolling, §3's comment on the scroll struct) instead of cursor motion.
func (s *Sink) Move(dx, dy int32) {
	s.mu.Lock()
	active := s.scrollActive
	sens := s.sensitivity
	s.mu.Unlock()

	if !active {
		s.moveAxis(dx, s.mouse.MoveRight, s.mouse.MoveLeft)
		s.moveAxis(dy, s.mouse.MoveDown, s.mouse.MoveUp)
		return
	}

	if sens <= 0 {
		sens = 1
	}
	if dy == 0 {
		return
	}
	clicks := dy / int32(sens)
	if clicks == 0 {
		return
	}
	if err := s.mouse.Wheel(false, -clicks); err != nil {
		s.reportError(fmt.Errorf("vdevice: wheel: %w", err))
	}
}

// moveAxis dispatches a signed delta to whichever of uinput's two
// directional calls applies; the library exposes MoveLeft/Right/Up/Down
// rather than a single signed Move, mirroring a relative device's actual
// two-direction-per-axis event pairs.
func (s *Sink) moveAxis(delta int32, positive, negative func(int32) error) {
	if delta == 0 {
		return
	}
	var err error
	if delta > 0 {
		err = positive(delta)
	} else {
		err = negative(-delta)
	}
	if err != nil {
		s.reportError(fmt.Errorf("vdevice: move: %w", err))
	}
}

// OnError is invoked for synthesis failures that don't rise to a Fault
// (§7); defaults to a no-op, normally wired to internal/logging by
// cmd/keyremapd's run command.
var OnError func(error)

func (s *Sink) reportError(err error) {
	if OnError != nil {
		OnError(err)
	}
}

func (s *Sink) Close() error {
	kerr := s.kb.Close()
	merr := s.mouse.Close()
	if kerr != nil {
		return kerr
	}
	return merr
}
