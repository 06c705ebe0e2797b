package keyboard

import "keyremapd/internal/keys"

// sendKey is the single choke point every output edge passes through: it
// discards NOOP/ExternalMouseButton and drops the edge entirely if it would
// be a no-op against the tracked keystate (§4.2's "no redundant edges").
func (k *Keyboard) sendKey(code keys.Code, pressed bool) {
	if code == keys.NOOP || code == keys.ExternalMouseButton {
		return
	}

	if pressed {
		k.lastPressedOutputCode = code
	}

	if k.keystate[code] != pressed {
		k.keystate[code] = pressed
		k.sink.SendKey(code, pressed)
	}
}

// clearMod releases a modifier, interposing the left-ctrl bracket trick
// (§4.3) when the modifier being released was both the last key pressed and
// one whose bare tap carries special meaning in common desktop
// environments (meta in GNOME, alt in Firefox) - without the guard,
// upstream heuristics would mistake our synthesized down/up pair for the
// user tapping that modifier alone.
func (k *Keyboard) clearMod(code keys.Code) {
	guard := k.lastPressedOutputCode == code &&
		keys.IsStandaloneMeaningful(code) &&
		!k.inhibitModifierGuard &&
		!k.config.DisableModifierGuard

	if guard && !k.keystate[keys.LeftCtrl] {
		k.sendKey(keys.LeftCtrl, true)
		k.sendKey(code, false)
		k.sendKey(keys.LeftCtrl, false)
	} else {
		k.sendKey(code, false)
	}
}

// setMods brings the live modifier keystate in line with mods, pressing
// anything newly required and releasing (through clearMod) anything no
// longer required.
func (k *Keyboard) setMods(mods keys.Modifier) {
	for _, mb := range keys.ModifierTable {
		if mb.Mask&mods != 0 {
			if !k.keystate[mb.Key] {
				k.sendKey(mb.Key, true)
			}
		} else if k.keystate[mb.Key] {
			k.clearMod(mb.Key)
		}
	}
}

// updateMods recomputes the modifier mask owed by every active layer
// (excluding excludedLayerIdx, and any of its constituents if it is a
// composite layer - a layer being released contributes nothing to the new
// mask while its own deactivation is in flight), ORs in the extra mods
// argument, and applies the result.
func (k *Keyboard) updateMods(excludedLayerIdx int, mods keys.Modifier) {
	for i := range k.config.Layers {
		layer := &k.config.Layers[i]

		if k.layerState[i].Active == 0 {
			continue
		}

		excluded := false
		if i == excludedLayerIdx {
			excluded = true
		} else if excludedLayerIdx >= 0 && k.config.Layers[excludedLayerIdx].Type == LayerComposite {
			for _, c := range k.config.Layers[excludedLayerIdx].Constituents {
				if c == i {
					excluded = true
					break
				}
			}
		}

		if !excluded {
			mods |= layer.Mods
		}
	}

	k.setMods(mods)
}
