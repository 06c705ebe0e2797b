package keyboard

import "keyremapd/internal/keys"

// chordEventMatch reports how well chord matches the pressed codes seen so
// far in events: 0 no match, 1 partial (every pressed code so far belongs
// to the chord but not all of the chord's codes have been pressed yet),
// 2 exact (every one of the chord's codes has been pressed).
func chordEventMatch(chord *Chord, events []KeyEvent) int {
	if len(events) == 0 {
		return 0
	}

	size := chord.size()
	matched := 0
	pressed := 0

	for _, ev := range events {
		if !ev.Pressed {
			continue
		}
		pressed++

		found := false
		for _, k := range chord.Keys {
			if k != 0 && k == ev.Code {
				found = true
				break
			}
		}
		if !found {
			return 0
		}
		matched++
	}

	if pressed == 0 {
		return 0
	}
	if matched == size {
		return 2
	}
	return 1
}

func (k *Keyboard) enqueueChordEvent(code keys.Code, pressed bool, time Tick) {
	if code == 0 {
		return
	}
	if len(k.chord.queue) >= MaxQueuedEvents {
		fault("chord queue overflow")
	}
	k.chord.queue = append(k.chord.queue, KeyEvent{Code: code, Pressed: pressed, Timestamp: time})
}

// checkChordMatch scans every active layer's chord list against the queued
// chord events, returning 0 (no match), 1 (partial only), 2 (one
// unambiguous exact match) or 3 (an exact match exists but so does another
// partial match, i.e. still ambiguous). The most-recently-activated layer
// wins ties among exact matches, mirroring lookupDescriptor.
func (k *Keyboard) checkChordMatch() (result int, match *Chord, matchLayer int) {
	fullMatch := false
	partialMatch := false
	var maxTS Tick = -1

	for idx := range k.config.Layers {
		layer := &k.config.Layers[idx]
		if k.layerState[idx].Active == 0 {
			continue
		}

		for ci := range layer.Chords {
			switch chordEventMatch(&layer.Chords[ci], k.chord.queue) {
			case 2:
				if maxTS <= k.layerState[idx].ActivationTime {
					matchLayer = idx
					match = &layer.Chords[ci]
					fullMatch = true
					maxTS = k.layerState[idx].ActivationTime
				}
			case 1:
				partialMatch = true
			}
		}
	}

	switch {
	case fullMatch && partialMatch:
		return 3, match, matchLayer
	case fullMatch:
		return 2, match, matchLayer
	case partialMatch:
		return 1, nil, 0
	default:
		return 0, nil, 0
	}
}

// resolveChord commits to kbd.chord.match (nil means "no chord, just
// replay the raw keys"): it claims a virtual chord code, synthesizes its
// press through processEvent, then replays every event queued since
// disambiguation began - starting the replay after the key codes that
// make up the chord itself, since those have already been consumed by the
// synthesized press.
func (k *Keyboard) resolveChord() bool {
	chord := k.chord.match
	k.chord.state = ChordResolving

	queueOffset := 0

	if chord != nil {
		code := keys.Code(0)
		for i := range k.activeChords {
			if !k.activeChords[i].active {
				k.activeChords[i] = activeChord{active: true, chord: *chord, layer: k.chord.matchLayer}
				code = keys.Chord1 + keys.Code(i)
				break
			}
		}
		if code == 0 {
			fault("too many simultaneously active chords")
		}

		queueOffset = chord.size()
		k.processEvent(code, true, k.chord.lastCodeTime)
	}

	replay := append([]KeyEvent(nil), k.chord.queue[queueOffset:]...)
	k.chord.state = ChordInactive
	k.chord.queue = k.chord.queue[:0]
	k.processEvents(replay)

	return true
}

func (k *Keyboard) abortChord() bool {
	k.chord.match = nil
	return k.resolveChord()
}

// handleChord is the chord resolver's entry point, threaded into
// processEvent ahead of everything else (§4.7). It returns true if it
// consumed the event.
func (k *Keyboard) handleChord(code keys.Code, pressed bool, time Tick) bool {
	interkey := k.config.ChordInterkeyTimeout
	hold := k.config.ChordHoldTimeout

	if code != 0 && !pressed {
		for i := range k.activeChords {
			ac := &k.activeChords[i]
			if !ac.active {
				continue
			}

			found := false
			remaining := 0
			for j := range ac.chord.Keys {
				if ac.chord.Keys[j] == code {
					ac.chord.Keys[j] = 0
					found = true
				}
				if ac.chord.Keys[j] != 0 {
					remaining++
				}
			}

			if found {
				if remaining == 0 {
					ac.active = false
					k.processEvent(keys.Chord1+keys.Code(i), false, time)
				}
				return true
			}
		}
	}

	switch k.chord.state {
	case ChordResolving:
		return false

	case ChordInactive:
		k.chord.queue = k.chord.queue[:0]
		k.chord.match = nil

		k.enqueueChordEvent(code, pressed, time)
		result, match, matchLayer := k.checkChordMatch()
		k.chord.match = match
		k.chord.matchLayer = matchLayer

		switch result {
		case 0:
			return false
		case 1, 3:
			k.chord.state = ChordPendingDisambiguation
			k.chord.lastCodeTime = time
			k.scheduleTimeout(time + interkey)
			return true
		default: // 2
			k.chord.lastCodeTime = time
			if hold != 0 {
				k.chord.state = ChordPendingHoldTimeout
				k.scheduleTimeout(time + hold)
				return true
			}
			return k.resolveChord()
		}

	case ChordPendingDisambiguation:
		if code == 0 {
			if time-k.chord.lastCodeTime >= interkey {
				if k.chord.match != nil {
					timeLeft := hold - interkey
					if timeLeft > 0 {
						k.scheduleTimeout(time + timeLeft)
						k.chord.state = ChordPendingHoldTimeout
					} else {
						return k.resolveChord()
					}
					return true
				}
				return k.abortChord()
			}
			return false
		}

		k.enqueueChordEvent(code, pressed, time)
		if !pressed {
			return k.abortChord()
		}

		result, match, matchLayer := k.checkChordMatch()
		if match != nil {
			k.chord.match = match
			k.chord.matchLayer = matchLayer
		}
		switch result {
		case 0:
			return k.abortChord()
		case 1, 3:
			k.chord.lastCodeTime = time
			k.chord.state = ChordPendingDisambiguation
			k.scheduleTimeout(time + interkey)
			return true
		default: // 2
			k.chord.lastCodeTime = time
			if hold != 0 {
				k.chord.state = ChordPendingHoldTimeout
				k.scheduleTimeout(time + hold)
				return true
			}
			return k.resolveChord()
		}

	case ChordPendingHoldTimeout:
		if code == 0 {
			if time-k.chord.lastCodeTime >= hold {
				return k.resolveChord()
			}
			return false
		}

		k.enqueueChordEvent(code, pressed, time)
		if !pressed {
			for _, kc := range k.chord.match.Keys {
				if kc == code {
					return k.abortChord()
				}
			}
		}
		return true
	}

	return false
}
