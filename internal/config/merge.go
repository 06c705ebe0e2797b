package config

import (
	"fmt"
	"strings"

	"keyremapd/internal/keyboard"
)

// Merge implements keyboard.ConfigMerger: it parses one live-edit
// expression of the form "layer.key = descriptor" and binds it into cfg in
// place, returning the layer touched (§6 "Runtime control - eval surface",
// the "any other string ... parsed as a config entry and merged" branch).
// A plain `keyboard.Keyboard.Eval` call wires this in as the merger
// argument; cmd/keyremapd's `eval` subcommand is the normal caller.
func Merge(cfg *keyboard.Config, expr string) (int, error) {
	eq := strings.IndexByte(expr, '=')
	if eq < 0 {
		return 0, fmt.Errorf("config: expected \"layer.key = descriptor\", got %q", expr)
	}

	lhs := strings.TrimSpace(expr[:eq])
	rhs := strings.TrimSpace(expr[eq+1:])

	dot := strings.IndexByte(lhs, '.')
	if dot < 0 {
		return 0, fmt.Errorf("config: expected \"layer.key\", got %q", lhs)
	}
	layerName, keyName := lhs[:dot], lhs[dot+1:]

	layerIndex := make(map[string]int, len(cfg.Layers))
	for i, l := range cfg.Layers {
		layerIndex[l.Name] = i
	}

	idx, ok := layerIndex[layerName]
	if !ok {
		return 0, fmt.Errorf("config: unknown layer %q", layerName)
	}

	code, ok := lookupPlainKey(keyName)
	if !ok {
		return 0, fmt.Errorf("config: unknown key %q", keyName)
	}

	b := &builder{cfg: cfg, layerIndex: layerIndex, runAsUID: cfg.RunAsUID, runAsGID: cfg.RunAsGID}
	d, err := b.parseDescriptor(rhs)
	if err != nil {
		return 0, err
	}

	cfg.Layers[idx].Keymap[code] = d
	return idx, nil
}
