package macro

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"keyremapd/internal/keys"
)

// modPrefixes maps the grammar's single-letter modifier prefixes to a
// modifier bit: C- (ctrl), S- (shift), M- (meta), A- (alt), G- (altgr).
var modPrefixes = map[byte]keys.Modifier{
	'C': keys.ModCtrl,
	'S': keys.ModShift,
	'M': keys.ModMeta,
	'A': keys.ModAlt,
	'G': keys.ModAltGr,
}

// parseKeySequence parses a single token such as "C-S-a" into a code and
// accumulated modifier mask. ok is false if the trailing key name is not
// recognised.
func parseKeySequence(tok string) (code keys.Code, mods keys.Modifier, ok bool) {
	for len(tok) >= 2 && tok[1] == '-' {
		bit, known := modPrefixes[tok[0]]
		if !known {
			break
		}
		mods |= bit
		tok = tok[2:]
	}

	c, shiftBit, found := keys.Lookup(tok)
	if !found {
		return 0, 0, false
	}
	return c, mods | shiftBit, true
}

// isTimeoutToken reports whether tok is "NNNms".
func isTimeoutToken(tok string) (ms int64, ok bool) {
	if !strings.HasSuffix(tok, "ms") {
		return 0, false
	}
	digits := tok[:len(tok)-2]
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Parse tokenizes and parses a macro expression of the form
// "C-a 100ms hello cmd(notify-send hi)" into a Macro (§6, §9). addCommand
// is invoked for every cmd(...)/command(...) token; it must append the
// shell string to the owning config's command pool and return its index.
func Parse(s string, addCommand func(shell string) int) (Macro, error) {
	var m Macro

	fields := splitMacroTokens(s)
	for _, tok := range fields {
		switch {
		case strings.HasPrefix(tok, "cmd(") || strings.HasPrefix(tok, "command("):
			body, err := commandBody(tok)
			if err != nil {
				return nil, err
			}
			if addCommand == nil {
				return nil, fmt.Errorf("commands are not allowed in this context")
			}
			idx := addCommand(body)
			m = append(m, Entry{Type: EntryCommand, CommandIdx: idx})

		case strings.HasPrefix(tok, "type(") || strings.HasPrefix(tok, "txt(") || strings.HasPrefix(tok, "t("):
			body, err := parenBody(tok)
			if err != nil {
				return nil, err
			}
			m = append(m, literalTextEntries(body)...)

		default:
			if ms, isTimeout := isTimeoutToken(tok); isTimeout {
				m = append(m, Entry{Type: EntryTimeout, Ms: ms})
			} else if strings.Contains(tok, "+") {
				parts := strings.Split(tok, "+")
				for _, part := range parts {
					if ms, ok := isTimeoutToken(part); ok {
						m = append(m, Entry{Type: EntryTimeout, Ms: ms})
						continue
					}
					code, _, ok := parseKeySequence(part)
					if !ok {
						return nil, fmt.Errorf("%q is not a valid key", part)
					}
					m = append(m, Entry{Type: EntryHold, Code: code})
				}
				m = append(m, Entry{Type: EntryRelease})
			} else if code, mods, ok := parseKeySequence(tok); ok {
				m = append(m, Entry{Type: EntryKeySequence, Code: code, Mods: mods})
			} else {
				m = append(m, literalTextEntries(tok)...)
			}
		}
	}

	return m, nil
}

// splitMacroTokens splits on runs of whitespace, except inside a
// cmd(...)/command(...)/type(...)/txt(...)/t(...) span, which may itself
// contain spaces up to its matching, possibly backslash-escaped,
// close paren.
func splitMacroTokens(s string) []string {
	var out []string
	i := 0
	n := len(s)

	isOpener := func(rest string) (name string, ok bool) {
		for _, name := range []string{"cmd(", "command(", "type(", "txt(", "t("} {
			if strings.HasPrefix(rest, name) {
				return name, true
			}
		}
		return "", false
	}

	for i < n {
		for i < n && isSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}

		start := i
		if name, ok := isOpener(s[i:]); ok {
			i += len(name)
			for i < n {
				if s[i] == '\\' {
					i += 2
					continue
				}
				if s[i] == ')' {
					i++
					break
				}
				i++
			}
			out = append(out, s[start:i])
			continue
		}

		for i < n && !isSpace(s[i]) {
			i++
		}
		out = append(out, s[start:i])
	}

	return out
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// commandBody extracts and unescapes the contents of cmd(...)/command(...).
func commandBody(tok string) (string, error) {
	body, err := parenBody(tok)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(body, "\\)", ")"), nil
}

// parenBody extracts the contents between the first '(' and the matching
// (possibly escaped) final ')'.
func parenBody(tok string) (string, error) {
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return "", fmt.Errorf("incomplete macro expression: %q", tok)
	}
	return tok[open+1 : len(tok)-1], nil
}

// literalTextEntries expands a run of literal text into KEYSEQUENCE/
// UNICODE entries rune by rune: ASCII letters/digits/punctuation that the
// key table knows about become KEYSEQUENCE entries (with an implicit
// shift where needed); anything else falls back to a UNICODE entry.
func literalTextEntries(text string) Macro {
	var m Macro
	for _, r := range text {
		if r < utf8.RuneSelf {
			if code, mods, ok := keys.Lookup(string(r)); ok {
				m = append(m, Entry{Type: EntryKeySequence, Code: code, Mods: mods})
				continue
			}
		}
		m = append(m, Entry{Type: EntryUnicode, Codepoint: r})
	}
	return m
}
