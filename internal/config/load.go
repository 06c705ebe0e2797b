package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"keyremapd/internal/keyboard"
	"keyremapd/internal/keys"
)

// Load reads and parses the keymap file at path.
func Load(path string) (*keyboard.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse parses keymap file contents already read into memory (used by
// `validate` and by tests that would rather not touch a filesystem).
func Parse(data []byte) (*keyboard.Config, error) {
	var doc rawDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return build(&doc)
}

// Devices returns the [device] ids= patterns of an already-loaded file,
// re-decoded here rather than threaded through keyboard.Config because
// device selection is internal/device's concern, not the dispatcher's.
func Devices(data []byte) ([]string, error) {
	var doc rawDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return doc.Device.IDs, nil
}

func build(doc *rawDocument) (*keyboard.Config, error) {
	if len(doc.Layer) == 0 {
		return nil, fmt.Errorf("config: at least one [[layer]] is required")
	}

	cfg := &keyboard.Config{
		DefaultLayout:        doc.Global.DefaultLayout,
		OneshotTimeout:       doc.Global.OneshotTimeout,
		MacroTimeout:         doc.Global.MacroTimeout,
		MacroRepeatTimeout:   doc.Global.MacroRepeatTimeout,
		OverloadTapTimeout:   doc.Global.OverloadTapTimeout,
		ChordInterkeyTimeout: doc.Global.ChordInterkeyTimeout,
		ChordHoldTimeout:     doc.Global.ChordHoldTimeout,
		DisableModifierGuard: doc.Global.DisableModifierGuard,
		RunAsUID:             doc.Global.RunAsUID,
		RunAsGID:             doc.Global.RunAsGID,
	}

	layerIndex := make(map[string]int, len(doc.Layer))
	for i, rl := range doc.Layer {
		if rl.Name == "" {
			return nil, fmt.Errorf("config: [[layer]] #%d is missing a name", i)
		}
		if _, dup := layerIndex[rl.Name]; dup {
			return nil, fmt.Errorf("config: duplicate layer name %q", rl.Name)
		}
		layerIndex[rl.Name] = i
	}

	cfg.Layers = make([]keyboard.Layer, len(doc.Layer))
	for i, rl := range doc.Layer {
		layerType, err := parseLayerType(rl.Type)
		if err != nil {
			return nil, fmt.Errorf("config: layer %q: %w", rl.Name, err)
		}
		// Layer 0 is always active and of type LAYOUT (§3); a file that
		// names its first layer otherwise is almost certainly a mistake,
		// but honoring an explicit "normal"/"composite" there would build
		// a Config the dispatcher can't run, so it is corrected here
		// rather than left to surface as a confusing runtime fault.
		if i == 0 {
			layerType = keyboard.LayerLayout
		}

		mods, err := parseMods(rl.Mods)
		if err != nil {
			return nil, fmt.Errorf("config: layer %q: %w", rl.Name, err)
		}

		cfg.Layers[i] = keyboard.Layer{
			Name: rl.Name,
			Type: layerType,
			Mods: mods,
		}
	}

	for i, rl := range doc.Layer {
		for _, name := range rl.Constituents {
			idx, ok := layerIndex[name]
			if !ok {
				return nil, fmt.Errorf("config: layer %q: unknown constituent %q", rl.Name, name)
			}
			cfg.Layers[i].Constituents = append(cfg.Layers[i].Constituents, idx)
		}
	}

	b := &builder{
		cfg:        cfg,
		layerIndex: layerIndex,
		runAsUID:   cfg.RunAsUID,
		runAsGID:   cfg.RunAsGID,
	}

	for i, rl := range doc.Layer {
		for keyName, expr := range rl.Keys {
			code, ok := lookupPlainKey(keyName)
			if !ok {
				return nil, fmt.Errorf("config: layer %q: unknown key %q", rl.Name, keyName)
			}
			d, err := b.parseDescriptor(expr)
			if err != nil {
				return nil, fmt.Errorf("config: layer %q, key %q: %w", rl.Name, keyName, err)
			}
			cfg.Layers[i].Keymap[code] = d
		}

		for _, rc := range rl.Chords {
			if len(rc.Keys) == 0 || len(rc.Keys) > keyboard.MaxChordKeys {
				return nil, fmt.Errorf("config: layer %q: chord must bind 1-%d keys, got %d",
					rl.Name, keyboard.MaxChordKeys, len(rc.Keys))
			}
			action, err := b.parseDescriptor(rc.Action)
			if err != nil {
				return nil, fmt.Errorf("config: layer %q: chord action: %w", rl.Name, err)
			}
			var chord keyboard.Chord
			chord.Descriptor = action
			for j, keyName := range rc.Keys {
				code, ok := lookupPlainKey(keyName)
				if !ok {
					return nil, fmt.Errorf("config: layer %q: chord key %q unknown", rl.Name, keyName)
				}
				chord.Keys[j] = code
			}
			cfg.Layers[i].Chords = append(cfg.Layers[i].Chords, chord)
		}
	}

	return cfg, nil
}

func parseLayerType(s string) (keyboard.LayerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return keyboard.LayerNormal, nil
	case "layout":
		return keyboard.LayerLayout, nil
	case "composite":
		return keyboard.LayerComposite, nil
	default:
		return 0, fmt.Errorf("unknown layer type %q", s)
	}
}

var modNames = map[string]keys.Modifier{
	"shift": keys.ModShift,
	"ctrl":  keys.ModCtrl,
	"alt":   keys.ModAlt,
	"altgr": keys.ModAltGr,
	"meta":  keys.ModMeta,
}

func parseMods(names []string) (keys.Modifier, error) {
	var mods keys.Modifier
	for _, n := range names {
		bit, ok := modNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", n)
		}
		mods |= bit
	}
	return mods, nil
}

// lookupPlainKey resolves a keymap-file key name (the left-hand side of a
// "key = descriptor" line), ignoring any implicit shift keys.Lookup would
// report for a shifted literal - a keymap slot is always a physical code.
func lookupPlainKey(name string) (keys.Code, bool) {
	code, _, ok := keys.Lookup(strings.ToLower(strings.TrimSpace(name)))
	return code, ok
}
