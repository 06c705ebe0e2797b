// Package keys holds the fixed key-code and modifier tables shared by the
// remapping core, the config parser and the device adapters. Codes follow
// the Linux input-event-codes numbering so they round-trip cleanly through
// evdev and uinput without translation.
package keys

// Code is a physical or synthetic key code. 0 is reserved ("tick only").
type Code = uint8

// Reserved and sentinel codes.
const (
	NOOP                = Code(0)
	ExternalMouseButton = Code(255)
)

// Chord virtual code range. Codes in [Chord1, ChordMax] never arrive from a
// real device; the dispatcher assigns them to resolved chords.
const (
	Chord1   = Code(200)
	ChordMax = Code(231)
)

// A representative subset of Linux input-event-codes, enough to express the
// scenario configs and macro grammar this daemon supports. Names mirror
// linux/input-event-codes.h (KEY_* without the prefix).
const (
	Esc   = Code(1)
	One   = Code(2)
	Two   = Code(3)
	Three = Code(4)
	Four  = Code(5)
	Five  = Code(6)
	Six   = Code(7)
	Seven = Code(8)
	Eight = Code(9)
	Nine  = Code(10)
	Zero  = Code(11)
	Minus = Code(12)
	Equal = Code(13)

	Backspace = Code(14)
	Tab       = Code(15)

	Q = Code(16)
	W = Code(17)
	E = Code(18)
	R = Code(19)
	T = Code(20)
	Y = Code(21)
	U = Code(22)
	I = Code(23)
	O = Code(24)
	P = Code(25)

	LeftBrace  = Code(26)
	RightBrace = Code(27)
	Enter      = Code(28)
	LeftCtrl   = Code(29)

	A = Code(30)
	S = Code(31)
	D = Code(32)
	F = Code(33)
	G = Code(34)
	H = Code(35)
	J = Code(36)
	K = Code(37)
	L = Code(38)

	Semicolon  = Code(39)
	Apostrophe = Code(40)
	Grave      = Code(41)
	LeftShift  = Code(42)
	Backslash  = Code(43)

	Z = Code(44)
	X = Code(45)
	C = Code(46)
	V = Code(47)
	B = Code(48)
	N = Code(49)
	M = Code(50)

	Comma      = Code(51)
	Dot        = Code(52)
	Slash      = Code(53)
	RightShift = Code(54)

	LeftAlt  = Code(56)
	Space    = Code(57)
	CapsLock = Code(58)

	F1  = Code(59)
	F2  = Code(60)
	F3  = Code(61)
	F4  = Code(62)
	F5  = Code(63)
	F6  = Code(64)
	F7  = Code(65)
	F8  = Code(66)
	F9  = Code(67)
	F10 = Code(68)

	Up    = Code(103)
	Left  = Code(105)
	Right = Code(106)
	Down  = Code(108)

	RightCtrl = Code(97)
	RightAlt  = Code(100)
	LeftMeta  = Code(125)
	RightMeta = Code(126)

	F11 = Code(87)
	F12 = Code(88)
)

// Modifier is one bit in the mask carried by KEYSEQUENCE/layer descriptors.
type Modifier = uint8

const (
	ModShift Modifier = 1 << 0
	ModCtrl  Modifier = 1 << 1
	ModAlt   Modifier = 1 << 2
	ModAltGr Modifier = 1 << 3
	ModMeta  Modifier = 1 << 4
)

// ModifierBinding pairs a modifier bit with the canonical output key it
// asserts. Order matters: set_mods iterates this table in order when
// issuing edges, so left-hand modifiers consistently precede altgr/meta.
type ModifierBinding struct {
	Mask Modifier
	Key  Code
}

// ModifierTable is the static mask->keycode map used throughout the
// modifier engine (§4.3) and the macro executor (§4.9).
var ModifierTable = [...]ModifierBinding{
	{ModCtrl, LeftCtrl},
	{ModShift, LeftShift},
	{ModAlt, LeftAlt},
	{ModAltGr, RightAlt},
	{ModMeta, LeftMeta},
}

// standaloneMeaningful is the set of modifiers whose release triggers the
// guard described in §4.3 ("defeat upstream tap-to-open-menu heuristics").
var standaloneMeaningful = map[Code]bool{
	LeftMeta: true,
	LeftAlt:  true,
	RightAlt: true,
}

// IsStandaloneMeaningful reports whether code is a modifier that needs the
// guard bracket on a bare release.
func IsStandaloneMeaningful(code Code) bool {
	return standaloneMeaningful[code]
}

// hexDigitCodes maps a lowercase hex nibble to the key that types it, used
// by the unicode-entry macro step (§4.9).
var hexDigitCodes = [16]Code{
	Zero, One, Two, Three, Four, Five, Six, Seven,
	Eight, Nine, A, B, C, D, E, F,
}

// HexDigitCode returns the key code for the nibble 0x0-0xF.
func HexDigitCode(nibble uint8) Code {
	return hexDigitCodes[nibble&0xF]
}

// byName resolves the handful of names the macro/config grammars accept
// literally (bare unicode letters, named keys). Populated once in init so
// the lookup table itself can stay declarative above.
var byName map[string]Code

// shiftedByName resolves punctuation/letters that require an implicit
// shift when typed literally (e.g. "A", "{").
var shiftedByName map[string]Code

func init() {
	byName = map[string]Code{
		"esc": Esc, "escape": Esc,
		"tab": Tab, "enter": Enter, "return": Enter,
		"space": Space, "backspace": Backspace,
		"capslock": CapsLock,
		"leftshift": LeftShift, "rightshift": RightShift,
		"leftctrl": LeftCtrl, "rightctrl": RightCtrl,
		"leftalt": LeftAlt, "rightalt": RightAlt,
		"leftmeta": LeftMeta, "rightmeta": RightMeta,
		"up": Up, "down": Down, "left": Left, "right": Right,
		"f1": F1, "f2": F2, "f3": F3, "f4": F4, "f5": F5,
		"f6": F6, "f7": F7, "f8": F8, "f9": F9, "f10": F10,
		"f11": F11, "f12": F12,
		"a": A, "b": B, "c": C, "d": D, "e": E, "f": F, "g": G, "h": H,
		"i": I, "j": J, "k": K, "l": L, "m": M, "n": N, "o": O, "p": P,
		"q": Q, "r": R, "s": S, "t": T, "u": U, "v": V, "w": W, "x": X,
		"y": Y, "z": Z,
		"0": Zero, "1": One, "2": Two, "3": Three, "4": Four,
		"5": Five, "6": Six, "7": Seven, "8": Eight, "9": Nine,
		"-": Minus, "=": Equal, "[": LeftBrace, "]": RightBrace,
		";": Semicolon, "'": Apostrophe, "`": Grave, "\\": Backslash,
		",": Comma, ".": Dot, "/": Slash,
	}

	shiftedByName = map[string]Code{
		"A": A, "B": B, "C": C, "D": D, "E": E, "F": F, "G": G, "H": H,
		"I": I, "J": J, "K": K, "L": L, "M": M, "N": N, "O": O, "P": P,
		"Q": Q, "R": R, "S": S, "T": T, "U": U, "V": V, "W": W, "X": X,
		"Y": Y, "Z": Z,
		"!": One, "@": Two, "#": Three, "$": Four, "%": Five,
		"^": Six, "&": Seven, "*": Eight, "(": Nine, ")": Zero,
		"_": Minus, "+": Equal, "{": LeftBrace, "}": RightBrace,
		":": Semicolon, "\"": Apostrophe, "~": Grave, "|": Backslash,
		"<": Comma, ">": Dot, "?": Slash,
	}
}

// Lookup resolves a bare key name (as found in config keymaps and macro
// literal text) to a code and the modifier mask it implicitly carries.
// ok is false if name is not recognised.
func Lookup(name string) (code Code, mods Modifier, ok bool) {
	if c, found := byName[name]; found {
		return c, 0, true
	}
	if c, found := shiftedByName[name]; found {
		return c, ModShift, true
	}
	return 0, 0, false
}
