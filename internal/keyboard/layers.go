package keyboard

import "keyremapd/internal/keys"

// nextOrdinal returns a strictly increasing counter used to order layer
// activations (§3's "most recently activated layer wins"). It is
// deliberately independent of the caller-supplied event Tick: two layers
// activated by the same event still need a well-defined relative order.
func (k *Keyboard) nextOrdinal() Tick {
	k.ordinal++
	return k.ordinal
}

// activateLayer raises idx's activation count, stamps its activation
// order, retargets code's cache entry (if any) to it so a later SWAP can
// find the layer a held key is responsible for, and notifies the sink.
// Every call must be paired with a deactivateLayer call (§3).
func (k *Keyboard) activateLayer(code keys.Code, idx int) {
	k.layerState[idx].ActivationTime = k.nextOrdinal()
	k.layerState[idx].Active++

	if ent := k.cache.get(code); ent != nil {
		ent.activatesLayer = idx
	}

	k.sink.OnLayerChange(&k.config.Layers[idx], true)
}

func (k *Keyboard) deactivateLayer(idx int) {
	if k.layerState[idx].Active == 0 {
		fault("deactivating already-inactive layer %d", idx)
	}
	k.layerState[idx].Active--
	k.sink.OnLayerChange(&k.config.Layers[idx], false)
}

// lookupDescriptor resolves code against the active layer stack (§4.4):
// virtual chord codes resolve directly to the chord's bound descriptor;
// otherwise the keymap of every active layer is scanned and the
// most-recently-activated non-null binding wins; composite layers whose
// every constituent is active are then considered, the one with the most
// constituents taking precedence over plain layers and over each other.
// A layer with no binding at all for code falls back to a plain
// KEYSEQUENCE of code itself on layer 0.
func (k *Keyboard) lookupDescriptor(code keys.Code) (Descriptor, int) {
	if code >= keys.Chord1 && code <= keys.ChordMax {
		idx := int(code - keys.Chord1)
		ac := k.activeChords[idx]
		return ac.chord.Descriptor, ac.layer
	}

	var d Descriptor
	dl := 0
	var maxTS Tick

	for i := range k.config.Layers {
		layer := &k.config.Layers[i]
		if k.layerState[i].Active == 0 {
			continue
		}

		at := k.layerState[i].ActivationTime
		if layer.Keymap[code].Op != OpNull && at >= maxTS {
			maxTS = at
			d = layer.Keymap[code]
			dl = i
		}
	}

	maxConstituents := 0
	for i := range k.config.Layers {
		layer := &k.config.Layers[i]
		if layer.Type != LayerComposite {
			continue
		}

		match := true
		for _, c := range layer.Constituents {
			if k.layerState[c].Active == 0 {
				match = false
				break
			}
		}

		if match && layer.Keymap[code].Op != OpNull && len(layer.Constituents) > maxConstituents {
			d = layer.Keymap[code]
			dl = i
			maxConstituents = len(layer.Constituents)
		}
	}

	if d.Op == OpNull {
		d = Descriptor{Op: OpKeySequence}
		d.Args[0].Code = code
		dl = 0
	}

	return d, dl
}

// clearOneshot deactivates every layer holding a one-shot depth and resets
// the one-shot latch/timeout (§4.6's one-shot family).
func (k *Keyboard) clearOneshot() {
	for i := range k.config.Layers {
		for k.layerState[i].OneshotDepth > 0 {
			k.deactivateLayer(i)
			k.layerState[i].OneshotDepth--
		}
	}

	k.oneshotLatch = false
	k.oneshotTimeout = 0
}

// clear deactivates every toggled non-layout layer, drops the oneshot
// state, abandons any in-flight macro repeat, and resets the held keystate
// to nothing (§4.8's CLEAR/CLEARM).
func (k *Keyboard) clear() {
	k.clearOneshot()

	for i := 1; i < len(k.config.Layers); i++ {
		layer := &k.config.Layers[i]
		if layer.Type != LayerLayout && k.layerState[i].Toggled {
			k.layerState[i].Toggled = false
			k.deactivateLayer(i)
		}
	}

	k.activeMacro = nil
	k.resetKeystate()
}

// resetKeystate releases every key the sink believes is still held.
func (k *Keyboard) resetKeystate() {
	for code := range k.keystate {
		if k.keystate[code] {
			k.sink.SendKey(keys.Code(code), false)
			k.keystate[code] = false
		}
	}
}

// setLayout switches the single active LAYOUT layer besides layer 0 to idx
// (layer 0 itself always stays active), clearing transient state first.
func (k *Keyboard) setLayout(idx int) {
	k.clear()

	for i := 1; i < len(k.config.Layers); i++ {
		if k.config.Layers[i].Type == LayerLayout {
			k.layerState[i].Active = 0
		}
	}

	if idx != 0 {
		k.layerState[idx].ActivationTime = 1
		k.layerState[idx].Active = 1
	}

	k.sink.OnLayerChange(&k.config.Layers[idx], true)
}
