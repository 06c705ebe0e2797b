// Package config parses the on-disk keymap file into a *keyboard.Config and
// supplies the live-edit parser for the eval surface's "any other string"
// branch (spec §6 "Configuration file", "Runtime control - eval surface").
//
// The on-disk format is TOML (github.com/BurntSushi/toml): a [global] table
// of tunables, an optional [device] table selecting which input nodes a
// keyboard instance attaches to (present in original_source's per-keyboard
// id-matching table but left out of the keymap-file bullet), and an ordered
// list of [[layer]] tables - an array of tables rather than a map so layer
// order (and therefore layer 0) is unambiguous, which a plain TOML map of
// sections would not guarantee.
package config

// rawDocument is the direct decode target for a config file; build()
// resolves it into a *keyboard.Config.
type rawDocument struct {
	Global rawGlobal  `toml:"global"`
	Device rawDevice  `toml:"device"`
	Layer  []rawLayer `toml:"layer"`
}

type rawGlobal struct {
	DefaultLayout        string `toml:"default_layout"`
	OneshotTimeout       int64  `toml:"oneshot_timeout"`
	MacroTimeout         int64  `toml:"macro_timeout"`
	MacroRepeatTimeout   int64  `toml:"macro_repeat_timeout"`
	OverloadTapTimeout   int64  `toml:"overload_tap_timeout"`
	ChordInterkeyTimeout int64  `toml:"chord_interkey_timeout"`
	ChordHoldTimeout     int64  `toml:"chord_hold_timeout"`
	DisableModifierGuard bool   `toml:"disable_modifier_guard"`

	// RunAsUID/RunAsGID are the default privilege-drop target for
	// command(...)/cmd(...) dispatch (internal/privdrop), absent from
	// spec.md's configuration-file bullet but required to make COMMAND
	// descriptors and macro command tokens usable at all.
	RunAsUID uint32 `toml:"run_as_uid"`
	RunAsGID uint32 `toml:"run_as_gid"`
}

// rawDevice selects which evdev nodes a keyboard instance grabs. IDs are
// glob-style patterns matched by internal/device against a node's reported
// name, e.g. "AT Translated Set 2*" or the literal path "/dev/input/event3".
type rawDevice struct {
	IDs []string `toml:"ids"`
}

type rawLayer struct {
	Name         string            `toml:"name"`
	Type         string            `toml:"type"` // "normal" (default), "layout", "composite"
	Mods         []string          `toml:"mods"`
	Constituents []string          `toml:"constituents"` // COMPOSITE only
	Keys         map[string]string `toml:"keys"`
	Chords       []rawChord        `toml:"chords"`
}

type rawChord struct {
	Keys   []string `toml:"keys"`
	Action string   `toml:"action"`
}
