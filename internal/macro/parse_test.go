package macro

import (
	"testing"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
)

func TestParseSimpleKeySequence(t *testing.T) {
	m, err := Parse("a", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{{Type: EntryKeySequence, Code: keys.A}}, m)
}

func TestParseModifierPrefix(t *testing.T) {
	m, err := Parse("C-a", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{{Type: EntryKeySequence, Code: keys.A, Mods: keys.ModCtrl}}, m)
}

func TestParseTimeoutToken(t *testing.T) {
	m, err := Parse("100ms", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{{Type: EntryTimeout, Ms: 100}}, m)
}

func TestParseSequenceWithDelay(t *testing.T) {
	// S7 — "C-a 100ms b"
	m, err := Parse("C-a 100ms b", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{
		{Type: EntryKeySequence, Code: keys.A, Mods: keys.ModCtrl},
		{Type: EntryTimeout, Ms: 100},
		{Type: EntryKeySequence, Code: keys.B},
	}, m)
}

func TestParseHoldCompound(t *testing.T) {
	m, err := Parse("leftalt+tab", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{
		{Type: EntryHold, Code: keys.LeftAlt},
		{Type: EntryHold, Code: keys.Tab},
		{Type: EntryRelease},
	}, m)
}

func TestParseCommandToken(t *testing.T) {
	var captured string
	m, err := Parse(`cmd(notify-send hi)`, func(shell string) int {
		captured = shell
		return 0
	})
	require.NoError(t, err)
	require.Equal(t, "notify-send hi", captured)
	require.Equal(t, Macro{{Type: EntryCommand, CommandIdx: 0}}, m)
}

func TestParseCommandRejectedWithoutContext(t *testing.T) {
	_, err := Parse(`cmd(ls)`, nil)
	require.Error(t, err)
}

func TestParseTypeLiteral(t *testing.T) {
	m, err := Parse("type(hi)", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{
		{Type: EntryKeySequence, Code: keys.H},
		{Type: EntryKeySequence, Code: keys.I},
	}, m)
}

func TestParseBareUnicode(t *testing.T) {
	m, err := Parse("é", nil)
	require.NoError(t, err)
	require.Equal(t, Macro{{Type: EntryUnicode, Codepoint: 'é'}}, m)
}

func TestParseIncompleteCommand(t *testing.T) {
	_, err := Parse(`cmd(unterminated`, func(string) int { return 0 })
	require.Error(t, err)
}
