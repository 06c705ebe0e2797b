package config

import (
	"fmt"
	"strconv"
	"strings"

	"keyremapd/internal/keyboard"
	"keyremapd/internal/keys"
	"keyremapd/internal/macro"
)

// builder accumulates the pool tables (Descriptors/Macros/Commands) a
// Config grows as its keymap lines are parsed, and resolves layer names
// to indices. It is shared by the file loader and the eval-surface merger
// so both grammars stay in lockstep.
type builder struct {
	cfg        *keyboard.Config
	layerIndex map[string]int

	// runAsUID/runAsGID is the [global] run_as_uid/run_as_gid default every
	// command this builder adds is dispatched under (internal/privdrop).
	runAsUID uint32
	runAsGID uint32
}

func (b *builder) layerRef(name string) (int, error) {
	idx, ok := b.layerIndex[strings.TrimSpace(name)]
	if !ok {
		return 0, fmt.Errorf("unknown layer %q", name)
	}
	return idx, nil
}

func (b *builder) addDescriptor(d keyboard.Descriptor) int {
	b.cfg.Descriptors = append(b.cfg.Descriptors, d)
	return len(b.cfg.Descriptors) - 1
}

func (b *builder) addCommand(shell string) int {
	b.cfg.Commands = append(b.cfg.Commands, keyboard.Command{
		Shell: shell,
		UID:   b.runAsUID,
		GID:   b.runAsGID,
	})
	return len(b.cfg.Commands) - 1
}

func (b *builder) addMacro(text string) (int, error) {
	m, err := macro.Parse(text, b.addCommand)
	if err != nil {
		return 0, err
	}
	b.cfg.Macros = append(b.cfg.Macros, m)
	return len(b.cfg.Macros) - 1, nil
}

// parseDescriptor parses one RHS expression from a "key = descriptor" line
// or chord action (§6 "Configuration file"). A bare token (possibly with
// C-/S-/M-/A-/G- prefixes, the same prefix grammar the macro parser uses)
// is a KEYSEQUENCE; everything else is "name(arg, arg, ...)". Argument
// position always lines up with the Descriptor.Args slot it fills, so a
// reader who knows the Op's Args layout (internal/keyboard/types.go) can
// read the config grammar off it directly.
func (b *builder) parseDescriptor(expr string) (keyboard.Descriptor, error) {
	expr = strings.TrimSpace(expr)

	name, body, hasArgs := splitCall(expr)
	if !hasArgs {
		if expr == "clear" {
			return keyboard.Descriptor{Op: keyboard.OpClear}, nil
		}
		code, mods, ok := parseKeyToken(expr)
		if !ok {
			return keyboard.Descriptor{}, fmt.Errorf("%q is not a recognised key or action", expr)
		}
		return keySequence(code, mods), nil
	}

	args := splitArgs(body)

	switch name {
	case "layer":
		return b.layerish(args, keyboard.OpLayer, keyboard.OpLayerM)
	case "oneshot":
		return b.layerish(args, keyboard.OpOneshot, keyboard.OpOneshotM)
	case "toggle":
		return b.layerish(args, keyboard.OpToggle, keyboard.OpToggleM)
	case "swap":
		return b.layerish(args, keyboard.OpSwap, keyboard.OpSwapM)

	case "layout":
		if len(args) != 1 {
			return keyboard.Descriptor{}, fmt.Errorf("layout() takes exactly one layer argument")
		}
		idx, err := b.layerRef(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpLayout}
		d.Args[0].LayerIdx = idx
		return d, nil

	case "clear":
		if len(args) != 1 {
			return keyboard.Descriptor{}, fmt.Errorf("clear(...) takes exactly one macro argument")
		}
		idx, err := b.addMacro(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpClearM}
		d.Args[0].MacroIdx = idx
		return d, nil

	case "overload":
		if len(args) != 2 {
			return keyboard.Descriptor{}, fmt.Errorf("overload() takes (layer, action)")
		}
		layerIdx, err := b.layerRef(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		action, err := b.parseDescriptor(args[1])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpOverload}
		d.Args[0].LayerIdx = layerIdx
		d.Args[1].DescIdx = b.addDescriptor(action)
		return d, nil

	case "overload_timeout", "overload_timeout_tap":
		if len(args) != 3 {
			return keyboard.Descriptor{}, fmt.Errorf("%s() takes (layer, action, timeout)", name)
		}
		layerIdx, err := b.layerRef(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		action, err := b.parseDescriptor(args[1])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		timeout, err := parseDuration(args[2])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		op := keyboard.OpOverloadTimeout
		if name == "overload_timeout_tap" {
			op = keyboard.OpOverloadTimeoutTap
		}
		d := keyboard.Descriptor{Op: op}
		d.Args[0].LayerIdx = layerIdx
		d.Args[1].DescIdx = b.addDescriptor(action)
		d.Args[2].Timeout = timeout
		return d, nil

	case "overload_idle_timeout":
		if len(args) != 3 {
			return keyboard.Descriptor{}, fmt.Errorf("overload_idle_timeout() takes (recent_action, idle_action, timeout)")
		}
		recent, err := b.parseDescriptor(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		idle, err := b.parseDescriptor(args[1])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		timeout, err := parseDuration(args[2])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpOverloadIdleTimeout}
		d.Args[0].DescIdx = b.addDescriptor(recent)
		d.Args[1].DescIdx = b.addDescriptor(idle)
		d.Args[2].Timeout = timeout
		return d, nil

	case "timeout":
		if len(args) != 3 {
			return keyboard.Descriptor{}, fmt.Errorf("timeout() takes (action1, timeout, action2)")
		}
		action1, err := b.parseDescriptor(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		timeout, err := parseDuration(args[1])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		action2, err := b.parseDescriptor(args[2])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpTimeout}
		d.Args[0].DescIdx = b.addDescriptor(action1)
		d.Args[1].Timeout = timeout
		d.Args[2].DescIdx = b.addDescriptor(action2)
		return d, nil

	case "macro":
		if len(args) != 1 {
			return keyboard.Descriptor{}, fmt.Errorf("macro() takes exactly one argument")
		}
		idx, err := b.addMacro(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpMacro}
		d.Args[0].MacroIdx = idx
		return d, nil

	case "macro2":
		if len(args) != 3 {
			return keyboard.Descriptor{}, fmt.Errorf("macro2() takes (hold_timeout, repeat_interval, macro)")
		}
		hold, err := parseDuration(args[0])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		repeat, err := parseDuration(args[1])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		idx, err := b.addMacro(args[2])
		if err != nil {
			return keyboard.Descriptor{}, err
		}
		d := keyboard.Descriptor{Op: keyboard.OpMacro2}
		d.Args[0].Timeout = hold
		d.Args[1].Timeout = repeat
		d.Args[2].MacroIdx = idx
		return d, nil

	case "command":
		if len(args) != 1 {
			return keyboard.Descriptor{}, fmt.Errorf("command() takes exactly one shell string")
		}
		idx := b.addCommand(args[0])
		d := keyboard.Descriptor{Op: keyboard.OpCommand}
		d.Args[0].CommandIdx = idx
		return d, nil

	case "scroll", "scroll_toggle":
		if len(args) != 1 {
			return keyboard.Descriptor{}, fmt.Errorf("%s() takes exactly one sensitivity argument", name)
		}
		sens, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return keyboard.Descriptor{}, fmt.Errorf("%s(): %w", name, err)
		}
		op := keyboard.OpScroll
		if name == "scroll_toggle" {
			op = keyboard.OpScrollToggle
		}
		d := keyboard.Descriptor{Op: op}
		d.Args[0].Sensitivity = sens
		return d, nil

	default:
		return keyboard.Descriptor{}, fmt.Errorf("unknown action %q", name)
	}
}

// layerish handles the layer/oneshot/toggle/swap family, all of which take
// a layer and an optional macro run on press (the "M" variants, §4.8).
func (b *builder) layerish(args []string, plain, withMacro keyboard.Op) (keyboard.Descriptor, error) {
	if len(args) < 1 || len(args) > 2 {
		return keyboard.Descriptor{}, fmt.Errorf("expected (layer) or (layer, macro), got %d arguments", len(args))
	}
	layerIdx, err := b.layerRef(args[0])
	if err != nil {
		return keyboard.Descriptor{}, err
	}
	if len(args) == 1 {
		d := keyboard.Descriptor{Op: plain}
		d.Args[0].LayerIdx = layerIdx
		return d, nil
	}
	macroIdx, err := b.addMacro(args[1])
	if err != nil {
		return keyboard.Descriptor{}, err
	}
	d := keyboard.Descriptor{Op: withMacro}
	d.Args[0].LayerIdx = layerIdx
	d.Args[1].MacroIdx = macroIdx
	return d, nil
}

func keySequence(code keys.Code, mods keys.Modifier) keyboard.Descriptor {
	d := keyboard.Descriptor{Op: keyboard.OpKeySequence}
	d.Args[0].Code = code
	d.Args[1].Mods = mods
	return d
}

// parseKeyToken parses a bare key token, accepting the same C-/S-/M-/A-/G-
// modifier-prefix grammar the macro parser does (§6 "Macro grammar"), so
// "C-S-a" is valid on either side of the grammar.
func parseKeyToken(tok string) (code keys.Code, mods keys.Modifier, ok bool) {
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

var modPrefixes = map[byte]keys.Modifier{
	'C': keys.ModCtrl,
	'S': keys.ModShift,
	'M': keys.ModMeta,
	'A': keys.ModAlt,
	'G': keys.ModAltGr,
}

// parseDuration parses the grammar's "NNNms" timeout token into a Tick.
func parseDuration(tok string) (keyboard.Tick, error) {
	tok = strings.TrimSpace(tok)
	if !strings.HasSuffix(tok, "ms") {
		return 0, fmt.Errorf("%q is not a valid timeout (expected NNNms)", tok)
	}
	digits := tok[:len(tok)-2]
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid timeout: %w", tok, err)
	}
	return n, nil
}

// splitCall splits "name(body)" into its parts. hasArgs is false for a bare
// token with no trailing parenthesised argument list.
func splitCall(expr string) (name, body string, hasArgs bool) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return expr, "", false
	}
	return expr[:open], expr[open+1 : len(expr)-1], true
}

// splitArgs splits a call's argument body on top-level commas, so a nested
// call such as overload(nav, macro(C-a, 50ms, b)) keeps macro's own
// (rare, but grammatically legal) commas inside its own argument.
func splitArgs(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(body[start:]))
	return args
}
