package keyboard

import (
	"keyremapd/internal/keys"
	"keyremapd/internal/macro"
)

// isPlainKeySequence reports whether e is a bare one-entry key press, the
// shape executeMacro special-cases.
func isPlainKeySequence(e macro.Entry) bool {
	return e.Type == macro.EntryKeySequence
}

// executeMacro runs m, minimizing redundant modifier strokes for the
// common case of a single plain key sequence (§4.9): update the mods once,
// then a bare press/release, instead of handing a one-entry macro to the
// full executor.
func (k *Keyboard) executeMacro(dl int, m *macro.Macro) {
	if len(*m) == 1 && isPlainKeySequence((*m)[0]) {
		e := (*m)[0]
		k.updateMods(dl, e.Mods)
		k.sendKey(e.Code, true)
		k.sendKey(e.Code, false)
		return
	}

	k.updateMods(dl, 0)
	k.macroExecutor.Execute(k, *m, k.macroEntryTimeout())
}

// processDescriptor applies one resolved action (§4.4-§4.9). code is the
// physical key that resolved to d; dl is the layer it resolved against.
func (k *Keyboard) processDescriptor(code keys.Code, d *Descriptor, dl int, pressed bool, time Tick) Tick {
	if pressed {
		switch d.Op {
		case OpLayerM, OpOneshotM, OpToggleM:
			k.executeMacro(dl, k.config.macro(d.Args[1].MacroIdx))
		}
	}

	var timeout Tick

	switch d.Op {
	case OpKeySequence:
		newCode := d.Args[0].Code
		mods := d.Args[1].Mods

		if pressed {
			// Permit variations of the same key to be actuated next to each
			// other, e.g. [ and {.
			if k.keystate[newCode] {
				k.sendKey(newCode, false)
			}

			k.updateMods(dl, mods)
			k.sendKey(newCode, true)
			k.clearOneshot()
		} else {
			k.sendKey(newCode, false)
			k.updateMods(-1, 0)
		}

		if mods == 0 || mods == keys.ModShift {
			k.lastSimpleKeyTime = time
		}

	case OpScroll:
		k.scroll.sensitivity = d.Args[0].Sensitivity
		k.scroll.active = pressed

	case OpScrollToggle:
		k.scroll.sensitivity = d.Args[0].Sensitivity
		if pressed {
			k.scroll.active = !k.scroll.active
		}

	case OpOverloadIdleTimeout:
		if pressed {
			timeoutArg := d.Args[2].Timeout
			var action *Descriptor
			if time-k.lastSimpleKeyTime >= timeoutArg {
				action = k.config.descriptor(d.Args[1].DescIdx)
			} else {
				action = k.config.descriptor(d.Args[0].DescIdx)
			}

			k.processDescriptor(code, action, dl, true, time)
			k.cache.updateDescriptor(code, *action)
		}

	case OpOverloadTimeout, OpOverloadTimeoutTap:
		if pressed {
			layer := d.Args[0].LayerIdx
			action := k.config.descriptor(d.Args[1].DescIdx)

			behaviour := PKUninterruptible
			if d.Op == OpOverloadTimeoutTap {
				behaviour = PKUninterruptibleTapAction2
			}

			k.pending.code = code
			k.pending.behaviour = behaviour
			k.pending.dl = dl
			k.pending.action1 = *action
			k.pending.action2 = Descriptor{Op: OpLayer}
			k.pending.action2.Args[0].LayerIdx = layer
			k.pending.expire = time + d.Args[2].Timeout

			k.scheduleTimeout(k.pending.expire)
		}

	case OpLayout:
		if pressed {
			k.setLayout(d.Args[0].LayerIdx)
		}

	case OpLayerM, OpLayer:
		idx := d.Args[0].LayerIdx

		if pressed {
			k.activateLayer(code, idx)
		} else {
			k.deactivateLayer(idx)
		}

		if k.lastPressedCode == code {
			k.inhibitModifierGuard = true
			k.updateMods(-1, 0)
			k.inhibitModifierGuard = false
		} else {
			k.updateMods(-1, 0)
		}

	case OpClearM:
		if pressed {
			k.clear()
			k.executeMacro(dl, k.config.macro(d.Args[0].MacroIdx))
		}

	case OpClear:
		if pressed {
			k.clear()
		}

	case OpOverload:
		idx := d.Args[0].LayerIdx
		action := k.config.descriptor(d.Args[1].DescIdx)

		if pressed {
			k.overloadStartTime = time
			k.activateLayer(code, idx)
			k.updateMods(-1, 0)
		} else {
			k.deactivateLayer(idx)
			k.updateMods(-1, 0)

			if k.lastPressedCode == code &&
				(k.config.OverloadTapTimeout == 0 || time-k.overloadStartTime < k.config.OverloadTapTimeout) {
				if action.Op == OpMacro {
					// Macro release relies on event logic; a synthesized
					// descriptor release can't stand in for it.
					k.executeMacro(dl, k.config.macro(action.Args[0].MacroIdx))
				} else {
					k.processDescriptor(code, action, dl, true, time)
					k.processDescriptor(code, action, dl, false, time)
				}
			}
		}

	case OpOneshotM, OpOneshot:
		idx := d.Args[0].LayerIdx

		if pressed {
			k.activateLayer(code, idx)
			k.updateMods(dl, 0)
			k.oneshotLatch = true
		} else if k.oneshotLatch {
			k.layerState[idx].OneshotDepth++
			if k.config.OneshotTimeout != 0 {
				k.oneshotTimeout = time + k.config.OneshotTimeout
				k.scheduleTimeout(k.oneshotTimeout)
			}
		} else {
			k.deactivateLayer(idx)
			k.updateMods(-1, 0)
		}

	case OpMacro2, OpMacro:
		if pressed {
			var m *macro.Macro
			if d.Op == OpMacro2 {
				m = k.config.macro(d.Args[2].MacroIdx)
				timeout = d.Args[0].Timeout
				k.macroRepeatInterval = d.Args[1].Timeout
			} else {
				m = k.config.macro(d.Args[0].MacroIdx)
				timeout = k.config.MacroTimeout
				k.macroRepeatInterval = k.config.MacroRepeatTimeout
			}

			k.clearOneshot()
			k.executeMacro(dl, m)
			k.activeMacro = m
			k.activeMacroLayer = dl

			k.macroTimeout = time + timeout
			k.scheduleTimeout(k.macroTimeout)
		}

	case OpToggleM, OpToggle:
		idx := d.Args[0].LayerIdx

		if pressed {
			k.layerState[idx].Toggled = !k.layerState[idx].Toggled

			if k.layerState[idx].Toggled {
				k.activateLayer(code, idx)
			} else {
				k.deactivateLayer(idx)
			}

			k.updateMods(-1, 0)
			k.clearOneshot()
		}

	case OpTimeout:
		if pressed {
			k.pending.action1 = *k.config.descriptor(d.Args[0].DescIdx)
			k.pending.action2 = *k.config.descriptor(d.Args[2].DescIdx)

			k.pending.code = code
			k.pending.dl = dl
			k.pending.expire = time + d.Args[1].Timeout
			k.pending.behaviour = PKInterruptAction1

			k.scheduleTimeout(k.pending.expire)
		}

	case OpCommand:
		if pressed {
			k.runCommand(d.Args[0].CommandIdx)
			k.clearOneshot()
			k.updateMods(-1, 0)
		}

	case OpSwap, OpSwapM:
		idx := d.Args[0].LayerIdx

		if pressed {
			var ce *cacheEntry

			switch {
			case k.layerState[dl].Toggled:
				k.deactivateLayer(dl)
				k.layerState[dl].Toggled = false

				k.activateLayer(0, idx)
				k.layerState[idx].Toggled = true
				k.updateMods(-1, 0)

			case k.layerState[dl].OneshotDepth > 0:
				k.deactivateLayer(dl)
				k.layerState[dl].OneshotDepth--

				k.activateLayer(0, idx)
				k.layerState[idx].OneshotDepth++
				k.updateMods(-1, 0)

			default:
				for i := range k.cache.entries {
					ent := &k.cache.entries[i]
					if ent.code != 0 && ent.activatesLayer == dl &&
						k.config.Layers[ent.activatesLayer].Type == LayerNormal && ent.activatesLayer != 0 {
						ce = ent
						break
					}
				}

				if ce != nil {
					ce.descriptor = Descriptor{Op: OpLayer}
					ce.descriptor.Args[0].LayerIdx = idx

					k.deactivateLayer(dl)
					k.activateLayer(ce.code, idx)

					k.updateMods(-1, 0)
				}
			}

			if d.Op == OpSwapM {
				k.executeMacro(dl, k.config.macro(d.Args[1].MacroIdx))
			}
		} else if d.Op == OpSwapM {
			m := k.config.macro(d.Args[1].MacroIdx)
			if len(*m) == 1 && isPlainKeySequence((*m)[0]) {
				k.sendKey((*m)[0].Code, false)
				k.updateMods(-1, 0)
			}
		}

	default:
		fault("unhandled descriptor op %d", d.Op)
	}

	if pressed {
		k.lastPressedCode = code
	}

	return timeout
}
