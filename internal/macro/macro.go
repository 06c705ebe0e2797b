// Package macro implements the macro grammar and its executor (§4.9): a
// small sequence of key-sequence, hold/release, unicode-entry, delay and
// command entries run synchronously against an output sink.
package macro

import (
	"time"

	"keyremapd/internal/keys"
)

// EntryType tags one macro.Entry.
type EntryType uint8

const (
	EntryKeySequence EntryType = iota
	EntryHold
	EntryRelease
	EntryUnicode
	EntryTimeout
	EntryCommand
)

// Entry is one token of a parsed macro.
type Entry struct {
	Type       EntryType
	Code       keys.Code
	Mods       keys.Modifier
	Codepoint  rune
	Ms         int64
	CommandIdx int
}

// Macro is an ordered list of entries.
type Macro []Entry

// Output is the minimal capability the executor needs: raw key edges.
// Keyboard satisfies this directly so macro execution goes through the
// same keystate-deduplicating path as descriptor execution, keeping the
// "no redundant edges" invariant intact even for macro-emitted keys.
type Output interface {
	SendKey(code keys.Code, pressed bool)
}

// CommandRunner dispatches a COMMAND entry's shell command by index. The
// keyboard package supplies an implementation backed by internal/privdrop;
// tests supply a recording stub.
type CommandRunner interface {
	Run(idx int) error
}

// Sleeper abstracts the blocking pacing delay so tests can run macros
// instantly instead of in real time.
type Sleeper func(time.Duration)

// Executor runs macros against an Output. Sleep defaults to time.Sleep;
// override it in tests.
type Executor struct {
	Sleep   Sleeper
	Runner  CommandRunner
	OnError func(err error)
}

// NewExecutor returns an Executor with real-time pacing.
func NewExecutor(runner CommandRunner) *Executor {
	return &Executor{Sleep: time.Sleep, Runner: runner}
}

// Execute runs m against out. entryTimeout is the inter-entry pacing delay
// (the config file's macro entry timeout tunable); it is applied after
// every entry and, for KEYSEQUENCE entries carrying modifiers, before the
// key press too, matching the original's two call sites for the same
// delay.
func (e *Executor) Execute(out Output, m Macro, entryTimeout time.Duration) {
	var held []keys.Code

	sleep := e.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for _, ent := range m {
		switch ent.Type {
		case EntryHold:
			held = append(held, ent.Code)
			out.SendKey(ent.Code, true)

		case EntryRelease:
			for _, c := range held {
				out.SendKey(c, false)
			}
			held = held[:0]

		case EntryUnicode:
			e.emitUnicode(out, ent.Codepoint, sleep)

		case EntryKeySequence:
			for _, mb := range keys.ModifierTable {
				if ent.Mods&mb.Mask != 0 {
					out.SendKey(mb.Key, true)
				}
			}

			if ent.Mods != 0 && entryTimeout > 0 {
				sleep(entryTimeout)
			}

			out.SendKey(ent.Code, true)
			out.SendKey(ent.Code, false)

			for _, mb := range keys.ModifierTable {
				if ent.Mods&mb.Mask != 0 {
					out.SendKey(mb.Key, false)
				}
			}

		case EntryTimeout:
			sleep(time.Duration(ent.Ms) * time.Millisecond)

		case EntryCommand:
			if e.Runner != nil {
				if err := e.Runner.Run(ent.CommandIdx); err != nil && e.OnError != nil {
					e.OnError(err)
				}
			}
		}

		if entryTimeout > 0 {
			sleep(entryTimeout)
		}
	}
}

// emitUnicode sends the configured unicode-entry leader chord
// (ctrl+shift+u), the codepoint's hex digits most-significant-nibble
// first with leading zeros trimmed, then Enter, then a short settle delay
// (§4.9).
func (e *Executor) emitUnicode(out Output, codepoint rune, sleep Sleeper) {
	out.SendKey(keys.LeftCtrl, true)
	out.SendKey(keys.LeftShift, true)
	out.SendKey(keys.U, true)
	out.SendKey(keys.U, false)
	out.SendKey(keys.LeftShift, false)
	out.SendKey(keys.LeftCtrl, false)

	for _, digit := range hexDigits(uint32(codepoint)) {
		code := keys.HexDigitCode(digit)
		out.SendKey(code, true)
		out.SendKey(code, false)
	}

	out.SendKey(keys.Enter, true)
	out.SendKey(keys.Enter, false)

	sleep(10 * time.Millisecond)
}

// hexDigits returns the nibbles of v, most significant first, with
// leading zero nibbles trimmed (a lone zero nibble for v==0).
func hexDigits(v uint32) []uint8 {
	if v == 0 {
		return []uint8{0}
	}

	var rev []uint8
	for v > 0 {
		rev = append(rev, uint8(v&0xF))
		v >>= 4
	}

	out := make([]uint8, len(rev))
	for i, d := range rev {
		out[len(rev)-1-i] = d
	}
	return out
}
