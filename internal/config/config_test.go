package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keyboard"
	"keyremapd/internal/keys"
)

const sample = `
[global]
default_layout = "main"
oneshot_timeout = 300
overload_tap_timeout = 200
chord_interkey_timeout = 50

[[layer]]
name = "main"
type = "layout"

[layer.keys]
a = "b"
capslock = "overload(nav, esc)"
f1 = "macro(C-a 100ms b)"

[[layer.chords]]
keys = ["j", "k"]
action = "esc"

[[layer]]
name = "nav"

[layer.keys]
h = "left"

[[layer]]
name = "shifted"
mods = ["shift"]

[[layer]]
name = "combo"
type = "composite"
constituents = ["nav", "shifted"]
`

func TestParseBuildsLayersInOrder(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, cfg.Layers, 4)
	require.Equal(t, "main", cfg.Layers[0].Name)
	require.Equal(t, keyboard.LayerLayout, cfg.Layers[0].Type)
	require.Equal(t, "nav", cfg.Layers[1].Name)
	require.Equal(t, "shifted", cfg.Layers[2].Name)
	require.Equal(t, keys.ModShift, cfg.Layers[2].Mods)
	require.Equal(t, "combo", cfg.Layers[3].Name)
	require.Equal(t, keyboard.LayerComposite, cfg.Layers[3].Type)
	require.Equal(t, []int{1, 2}, cfg.Layers[3].Constituents)
}

func TestParseGlobals(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "main", cfg.DefaultLayout)
	require.Equal(t, keyboard.Tick(300), cfg.OneshotTimeout)
	require.Equal(t, keyboard.Tick(200), cfg.OverloadTapTimeout)
	require.Equal(t, keyboard.Tick(50), cfg.ChordInterkeyTimeout)
}

func TestParsePlainKeySequence(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	d := cfg.Layers[0].Keymap[keys.A]
	require.Equal(t, keyboard.OpKeySequence, d.Op)
	require.Equal(t, keys.B, d.Args[0].Code)
}

func TestParseOverloadResolvesNestedAction(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	d := cfg.Layers[0].Keymap[keys.CapsLock]
	require.Equal(t, keyboard.OpOverload, d.Op)
	require.Equal(t, 1, d.Args[0].LayerIdx) // nav

	action := cfg.Descriptors[d.Args[1].DescIdx]
	require.Equal(t, keyboard.OpKeySequence, action.Op)
	require.Equal(t, keys.Esc, action.Args[0].Code)
}

func TestParseMacroKey(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	d := cfg.Layers[0].Keymap[keys.F1]
	require.Equal(t, keyboard.OpMacro, d.Op)

	m := cfg.Macros[d.Args[0].MacroIdx]
	require.Len(t, m, 3)
}

func TestParseCommandInheritsRunAsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[global]
run_as_uid = 1000
run_as_gid = 1000

[[layer]]
name = "main"
type = "layout"

[layer.keys]
f2 = "command(notify-send hi)"
`))
	require.NoError(t, err)
	d := cfg.Layers[0].Keymap[keys.F2]
	require.Equal(t, keyboard.OpCommand, d.Op)

	cmd := cfg.Commands[d.Args[0].CommandIdx]
	require.Equal(t, uint32(1000), cmd.UID)
	require.Equal(t, uint32(1000), cmd.GID)
}

func TestParseChord(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, cfg.Layers[0].Chords, 1)
	chord := cfg.Layers[0].Chords[0]
	require.Equal(t, keys.J, chord.Keys[0])
	require.Equal(t, keys.K, chord.Keys[1])
	require.Equal(t, keyboard.OpKeySequence, chord.Descriptor.Op)
	require.Equal(t, keys.Esc, chord.Descriptor.Args[0].Code)
}

func TestParseRejectsUnknownLayer(t *testing.T) {
	_, err := Parse([]byte(`
[[layer]]
name = "main"
type = "layout"
[layer.keys]
a = "layer(ghost)"
`))
	require.Error(t, err)
}

func TestParseRejectsDuplicateLayerName(t *testing.T) {
	_, err := Parse([]byte(`
[[layer]]
name = "main"
type = "layout"

[[layer]]
name = "main"
`))
	require.Error(t, err)
}

func TestMergeBindsLiveEdit(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	idx, err := Merge(cfg, "nav.l = right")
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	d := cfg.Layers[1].Keymap[keys.L]
	require.Equal(t, keyboard.OpKeySequence, d.Op)
	require.Equal(t, keys.Right, d.Args[0].Code)
}

func TestMergeRejectsMalformedExpression(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, err = Merge(cfg, "not an assignment")
	require.Error(t, err)

	_, err = Merge(cfg, "nokey = b")
	require.Error(t, err)

	_, err = Merge(cfg, "nav.zz = b")
	require.Error(t, err)
}

func TestSplitArgsHandlesNestedParens(t *testing.T) {
	args := splitArgs("nav, macro(C-a, 50ms, b)")
	require.Equal(t, []string{"nav", "macro(C-a, 50ms, b)"}, args)
}

func TestParseKeyTokenAcceptsModifierPrefix(t *testing.T) {
	code, mods, ok := parseKeyToken("C-S-a")
	require.True(t, ok)
	require.Equal(t, keys.A, code)
	require.Equal(t, keys.ModCtrl|keys.ModShift, mods)
}
