package keyboard

// ConfigMerger parses one eval expression that isn't a backup-stack
// primitive and merges it into cfg in place, returning the index of the
// layer it touched (for the sort/modified bookkeeping a TOML-backed config
// parser would otherwise do at load time). Supplied by internal/config,
// kept out of this package to avoid it depending on a file format.
type ConfigMerger func(cfg *Config, expr string) (layerIdx int, err error)

// Eval implements the runtime control surface (§6, §9): "reset" restores
// the top of the backup stack (the most recently pushed checkpoint), "push"
// snapshots the live config onto the backup stack, "pop"/"pop_all" unwind
// it (the oldest backup can never be popped), and anything else is handed
// to merger to apply as a live config edit. It mirrors kbd_eval's four-way
// dispatch, including kbd->original_config.back().restore(kbd->config).
func (k *Keyboard) Eval(expr string, merger ConfigMerger) (bool, error) {
	switch expr {
	case "reset":
		cfg := k.backups[len(k.backups)-1].restore()
		k.config = cfg
		k.layerState = resizeLayerState(k.layerState, len(cfg.Layers))
		return true, nil

	case "push":
		k.backups = append(k.backups, snapshotConfig(k.config))
		return true, nil

	case "pop":
		if len(k.backups) <= 1 {
			return false, nil
		}
		k.backups = k.backups[:len(k.backups)-1]
		return true, nil

	case "pop_all":
		k.backups = k.backups[:1]
		return true, nil

	default:
		if merger == nil {
			return false, nil
		}
		idx, err := merger(k.config, expr)
		if err != nil {
			return false, err
		}
		k.layerState = resizeLayerState(k.layerState, len(k.config.Layers))
		_ = idx
		return true, nil
	}
}

// resizeLayerState grows or shrinks a layer-state slice to n entries,
// preserving existing entries by index (eval-driven config growth only
// ever appends layers, per Config.Descriptors' doc comment).
func resizeLayerState(s []LayerState, n int) []LayerState {
	if len(s) == n {
		return s
	}
	grown := make([]LayerState, n)
	copy(grown, s)
	return grown
}
