package keyboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
	"keyremapd/internal/macro"
)

type edge struct {
	code    keys.Code
	pressed bool
}

type recordingSink struct {
	edges  []edge
	layers []string
}

func (r *recordingSink) SendKey(code keys.Code, pressed bool) {
	r.edges = append(r.edges, edge{code, pressed})
}

func (r *recordingSink) OnLayerChange(layer *Layer, active bool) {
	r.layers = append(r.layers, layer.Name)
}

func keySeq(code keys.Code, mods keys.Modifier) Descriptor {
	d := Descriptor{Op: OpKeySequence}
	d.Args[0].Code = code
	d.Args[1].Mods = mods
	return d
}

func ev(code keys.Code, pressed bool, ts Tick) KeyEvent {
	return KeyEvent{Code: code, Pressed: pressed, Timestamp: ts}
}

// S1 - a = b.
func TestScenarioSimpleRemap(t *testing.T) {
	cfg := NewConfig()
	cfg.Layers[0].Keymap[keys.A] = keySeq(keys.B, 0)

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{ev(keys.A, true, 0), ev(keys.A, false, 10)})

	require.Equal(t, []edge{{keys.B, true}, {keys.B, false}}, sink.edges)
}

// S2 - capslock = layer(nav); nav.h = left.
func TestScenarioLayerHold(t *testing.T) {
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

	require.Equal(t, []edge{{keys.Left, true}, {keys.Left, false}}, sink.edges)
}

// S3 - capslock = overload(nav, esc), overload_tap_timeout=200; tapped.
func TestScenarioOverloadTap(t *testing.T) {
	cfg := NewConfig()
	cfg.OverloadTapTimeout = 200
	cfg.Layers = append(cfg.Layers, Layer{Name: "nav", Type: LayerNormal})
	navIdx := 1
	cfg.Layers[navIdx].Keymap[keys.H] = keySeq(keys.Left, 0)

	escDesc := keySeq(keys.Esc, 0)
	cfg.Descriptors = append(cfg.Descriptors, escDesc)
	escIdx := 0

	d := Descriptor{Op: OpOverload}
	d.Args[0].LayerIdx = navIdx
	d.Args[1].DescIdx = escIdx
	cfg.Layers[0].Keymap[keys.CapsLock] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.CapsLock, true, 0),
		ev(keys.CapsLock, false, 50),
	})

	require.Equal(t, []edge{{keys.Esc, true}, {keys.Esc, false}}, sink.edges)
}

// S4 - same config, held with an interrupting key: no esc, just the nav binding.
func TestScenarioOverloadHold(t *testing.T) {
	cfg := NewConfig()
	cfg.OverloadTapTimeout = 200
	cfg.Layers = append(cfg.Layers, Layer{Name: "nav", Type: LayerNormal})
	navIdx := 1
	cfg.Layers[navIdx].Keymap[keys.H] = keySeq(keys.Left, 0)

	escDesc := keySeq(keys.Esc, 0)
	cfg.Descriptors = append(cfg.Descriptors, escDesc)

	d := Descriptor{Op: OpOverload}
	d.Args[0].LayerIdx = navIdx
	d.Args[1].DescIdx = 0
	cfg.Layers[0].Keymap[keys.CapsLock] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.CapsLock, true, 0),
		ev(keys.H, true, 20),
		ev(keys.H, false, 30),
		ev(keys.CapsLock, false, 40),
	})

	require.Equal(t, []edge{{keys.Left, true}, {keys.Left, false}}, sink.edges)
	for _, e := range sink.edges {
		require.NotEqual(t, keys.Esc, e.code)
	}
}

// S5 - leftshift = oneshot(shift): the shift stays down until the next key
// releases, bracketing it.
func TestScenarioOneshot(t *testing.T) {
	cfg := NewConfig()
	cfg.Layers = append(cfg.Layers, Layer{Name: "shift", Type: LayerNormal, Mods: keys.ModShift})
	shiftIdx := 1

	d := Descriptor{Op: OpOneshot}
	d.Args[0].LayerIdx = shiftIdx
	cfg.Layers[0].Keymap[keys.LeftShift] = d
	cfg.Layers[0].Keymap[keys.A] = keySeq(keys.A, 0)

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.LeftShift, true, 0),
		ev(keys.LeftShift, false, 5),
		ev(keys.A, true, 10),
		ev(keys.A, false, 15),
	})

	require.Equal(t, []edge{
		{keys.LeftShift, true},
		{keys.A, true},
		{keys.A, false},
		{keys.LeftShift, false},
	}, sink.edges)
}

// S6 - chord {j,k} = esc.
func TestScenarioChord(t *testing.T) {
	cfg := NewConfig()
	cfg.ChordInterkeyTimeout = 50
	chord := Chord{Descriptor: keySeq(keys.Esc, 0)}
	chord.Keys[0] = keys.J
	chord.Keys[1] = keys.K
	cfg.Layers[0].Chords = append(cfg.Layers[0].Chords, chord)

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.ProcessEvents([]KeyEvent{
		ev(keys.J, true, 0),
		ev(keys.K, true, 10),
		ev(keys.K, false, 20),
		ev(keys.J, false, 25),
	})

	require.Equal(t, []edge{{keys.Esc, true}, {keys.Esc, false}}, sink.edges)
}

// S7 - f1 = macro(C-a 100ms b).
func TestScenarioMacroTiming(t *testing.T) {
	cfg := NewConfig()
	m, err := macro.Parse("C-a 100ms b", nil)
	require.NoError(t, err)
	cfg.Macros = append(cfg.Macros, m)

	d := Descriptor{Op: OpMacro}
	d.Args[0].MacroIdx = 0
	cfg.Layers[0].Keymap[keys.F1] = d

	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	var slept []int64
	kbd.macroExecutor.Sleep = func(dur time.Duration) { slept = append(slept, int64(dur/time.Millisecond)) }

	kbd.ProcessEvents([]KeyEvent{ev(keys.F1, true, 0), ev(keys.F1, false, 5)})

	require.Equal(t, []edge{
		{keys.LeftCtrl, true},
		{keys.A, true},
		{keys.A, false},
		{keys.LeftCtrl, false},
		{keys.B, true},
		{keys.B, false},
	}, sink.edges)
	require.Contains(t, slept, int64(100))
}

// S8 - modifier guard (§4.3): a bare tap of a standalone-meaningful
// modifier (leftmeta) that was the last key sent is released through a
// leftctrl bracket, so upstream "tap meta alone" heuristics never fire.
func TestScenarioModifierGuard(t *testing.T) {
	cfg := NewConfig()
	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.sendKey(keys.LeftMeta, true)
	kbd.clearMod(keys.LeftMeta)

	require.Equal(t, []edge{
		{keys.LeftMeta, true},
		{keys.LeftCtrl, true},
		{keys.LeftMeta, false},
		{keys.LeftCtrl, false},
	}, sink.edges)
}

// With the guard disabled the bracket is skipped entirely.
func TestScenarioModifierGuardDisabled(t *testing.T) {
	cfg := NewConfig()
	cfg.DisableModifierGuard = true
	sink := &recordingSink{}
	kbd := NewKeyboard(cfg, sink, nil)

	kbd.sendKey(keys.LeftMeta, true)
	kbd.clearMod(keys.LeftMeta)

	require.Equal(t, []edge{
		{keys.LeftMeta, true},
		{keys.LeftMeta, false},
	}, sink.edges)
}
