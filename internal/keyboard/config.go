package keyboard

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"keyremapd/internal/macro"
)

// Command is a shell command entry referenced by COMMAND descriptors and
// cmd(...)/command(...) macro tokens (§4.8, §4.9).
type Command struct {
	Shell string
	UID   uint32
	GID   uint32
}

// Config is the static, parsed keymap: layers, macros, commands and the
// global tunables from the "[global]" section of the config file (§6).
// A Keyboard owns its Config by value-equivalent reference and mutates it
// in place via Eval; callers must not share a Config between instances.
type Config struct {
	Layers        []Layer
	Macros        []macro.Macro
	Commands      []Command
	// Descriptors is the pool TIMEOUT/OVERLOAD_TIMEOUT*/OVERLOAD_IDLE_TIMEOUT
	// address by DescIdx, so eval-driven config growth only ever appends
	// here (§9: "must extend, never renumber, these tables").
	Descriptors []Descriptor

	DefaultLayout string

	OneshotTimeout       Tick
	MacroTimeout         Tick
	MacroRepeatTimeout   Tick
	OverloadTapTimeout   Tick
	ChordInterkeyTimeout Tick
	ChordHoldTimeout     Tick
	DisableModifierGuard bool

	// RunAsUID/RunAsGID is the default privilege-drop target a COMMAND
	// descriptor or macro command token gets when its own Command entry
	// doesn't otherwise specify one (internal/config sets every Command it
	// builds from these at parse time).
	RunAsUID uint32
	RunAsGID uint32
}

// NewConfig returns an empty config with a layer 0 of type LAYOUT, as
// required by §3 ("Layer 0 is always active and is of type LAYOUT").
func NewConfig() *Config {
	return &Config{
		Layers: []Layer{{Name: "main", Type: LayerLayout}},
	}
}

// descriptor resolves a pool index, faulting on the "parser should have
// prevented it" case described in §7.
func (c *Config) descriptor(idx int) *Descriptor {
	if idx < 0 || idx >= len(c.Descriptors) {
		fault("descriptor pool index %d out of range", idx)
	}
	return &c.Descriptors[idx]
}

func (c *Config) macro(idx int) *macro.Macro {
	if idx < 0 || idx >= len(c.Macros) {
		fault("macro index %d out of range", idx)
	}
	return &c.Macros[idx]
}

// configBackup is one entry in the snapshot stack used by the eval
// surface's push/pop/reset (§6, §9). Snapshots are taken by a gob
// round-trip, the same deep-copy-by-serialization technique the teacher
// repo uses for save states, rather than a hand-written deep-copy walk
// that would need updating every time a field is added to Config.
type configBackup struct {
	data []byte
}

func snapshotConfig(c *Config) configBackup {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		fault("config snapshot failed: %v", err)
	}
	return configBackup{data: buf.Bytes()}
}

func (b configBackup) restore() *Config {
	var c Config
	if err := gob.NewDecoder(bytes.NewReader(b.data)).Decode(&c); err != nil {
		fault("config restore failed: %v", err)
	}
	return &c
}

func (b configBackup) String() string {
	return fmt.Sprintf("configBackup(%d bytes)", len(b.data))
}
