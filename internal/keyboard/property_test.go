package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
)

// Invariant 1: once every input key is released, every output key the
// sink saw pressed has also been released.
func TestInvariantAllKeysReleasedAtEndOfTrace(t *testing.T) {
	cfg := NewConfig()
	cfg.Layers = append(cfg.Layers, Layer{Name: "nav", Type: LayerNormal})
	navIdx := 1
	cfg.Layers[navIdx].Keymap[keys.H] = keySeq(keys.Left, 0)
	d := Descriptor{Op: OpLayer}
	d.Args[0].LayerIdx = navIdx
	cfg.Layers[0].Keymap[keys.CapsLock] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.CapsLock, true, 0),
		ev(keys.H, true, 5),
		ev(keys.H, false, 10),
		ev(keys.CapsLock, false, 15),
	})

	for code, held := range kbd.keystate {
		require.Falsef(t, held, "code %d still held at end of trace", code)
	}
}

// Invariant 2: activations and deactivations of any layer balance.
func TestInvariantLayerActivationsBalance(t *testing.T) {
	cfg := NewConfig()
	cfg.Layers = append(cfg.Layers, Layer{Name: "nav", Type: LayerNormal})
	navIdx := 1
	d := Descriptor{Op: OpLayer}
	d.Args[0].LayerIdx = navIdx
	cfg.Layers[0].Keymap[keys.CapsLock] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.CapsLock, true, 0),
		ev(keys.CapsLock, false, 10),
		ev(keys.CapsLock, true, 20),
		ev(keys.CapsLock, false, 30),
	})

	require.Equal(t, uint8(0), kbd.layerState[navIdx].Active)
}

// Invariant 4: no edge is emitted that repeats the code's current state.
func TestInvariantNoRedundantEdges(t *testing.T) {
	cfg := NewConfig()
	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.sendKey(keys.A, true)
	kbd.sendKey(keys.A, true) // redundant, must not re-emit

	require.Equal(t, []edge{{keys.A, true}}, sink.edges)
}

// Invariant 5: clear() is idempotent - a second call with nothing held
// produces no further output.
func TestInvariantClearIdempotent(t *testing.T) {
	cfg := NewConfig()
	cfg.Layers = append(cfg.Layers, Layer{Name: "nav", Type: LayerNormal, Mods: keys.ModShift})
	navIdx := 1
	d := Descriptor{Op: OpToggle}
	d.Args[0].LayerIdx = navIdx
	cfg.Layers[0].Keymap[keys.CapsLock] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{ev(keys.CapsLock, true, 0)})
	kbd.clear()
	before := len(sink.edges)
	kbd.clear()
	require.Equal(t, before, len(sink.edges))
}

// Invariant 6: a layer contributing mods M brackets the keys pressed while
// it is active with M down ... M up.
func TestInvariantLayerModsBracket(t *testing.T) {
	cfg := NewConfig()
	cfg.Layers = append(cfg.Layers, Layer{Name: "shifted", Type: LayerNormal, Mods: keys.ModShift})
	shiftedIdx := 1
	cfg.Layers[0].Keymap[keys.A] = keySeq(keys.A, 0)
	d := Descriptor{Op: OpLayer}
	d.Args[0].LayerIdx = shiftedIdx
	cfg.Layers[0].Keymap[keys.CapsLock] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.CapsLock, true, 0),
		ev(keys.A, true, 5),
		ev(keys.A, false, 10),
		ev(keys.CapsLock, false, 15),
	})

	require.Equal(t, []edge{
		{keys.LeftShift, true},
		{keys.A, true},
		{keys.A, false},
		{keys.LeftShift, false},
	}, sink.edges)
}
