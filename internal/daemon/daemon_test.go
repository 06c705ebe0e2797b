package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keyboard"
	"keyremapd/internal/keys"
)

// oneshotKeyboard builds a Keyboard whose only bound key fires a OneShot, so
// a press followed by a release arms the oneshot timeout and ProcessEvents
// returns a positive delay - the same shape internal/daemon's dispatch loop
// must re-arm a wait around.
func oneshotKeyboard(t *testing.T, oneshotTimeout keyboard.Tick) *keyboard.Keyboard {
	t.Helper()

	cfg := keyboard.NewConfig()
	cfg.Layers = append(cfg.Layers, keyboard.Layer{Name: "nav", Type: keyboard.LayerNormal})
	cfg.OneshotTimeout = oneshotTimeout
	cfg.Layers[0].Keymap[keys.A] = keyboard.Descriptor{
		Op:   keyboard.OpOneshot,
		Args: [3]keyboard.Arg{{LayerIdx: 1}},
	}

	return keyboard.NewKeyboard(cfg, keyboard.NopSink{}, nil)
}

func TestDispatchRearmsAndSynthesizesTickOnTimeout(t *testing.T) {
	kbd := oneshotKeyboard(t, 20)

	d := &Daemon{Keyboard: kbd}
	events := make(chan keyboard.KeyEvent, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.dispatch(ctx, events) }()

	events <- keyboard.KeyEvent{Code: keys.A, Pressed: true, Timestamp: 0}
	events <- keyboard.KeyEvent{Code: keys.A, Pressed: false, Timestamp: 5}

	err := <-done
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatchStopsOnContextCancel(t *testing.T) {
	kbd := oneshotKeyboard(t, 0)

	d := &Daemon{Keyboard: kbd}
	events := make(chan keyboard.KeyEvent)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.dispatch(ctx, events) }()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not observe context cancellation")
	}
}
