package keyboard

import "keyremapd/internal/keys"

// handlePendingKey is the pending-key (tap/hold) resolver's entry point,
// threaded into processEvent right after the chord resolver (§4.6). It
// returns true if it consumed the event.
func (k *Keyboard) handlePendingKey(code keys.Code, pressed bool, time Tick) bool {
	if !k.pending.armed() {
		return false
	}

	action := NullDescriptor

	if code != 0 {
		if !pressed {
			found := false
			for _, ev := range k.pending.queue {
				if ev.Code == code {
					found = true
					break
				}
			}
			// Propagate key-up events for keys struck before the pending key.
			if !found && code != k.pending.code {
				return false
			}
		}

		if len(k.pending.queue) >= MaxQueuedEvents {
			fault("pending key queue overflow")
		}
		k.pending.queue = append(k.pending.queue, KeyEvent{Code: code, Pressed: pressed, Timestamp: time})
	}

	switch {
	case time >= k.pending.expire:
		action = k.pending.action2

	case code == k.pending.code:
		if k.pending.tapExpiry != 0 && time >= k.pending.tapExpiry {
			action = Descriptor{Op: OpKeySequence}
			action.Args[0].Code = keys.NOOP
		} else {
			action = k.pending.action1
		}

	case code != 0 && pressed && k.pending.behaviour == PKInterruptAction1:
		action = k.pending.action1

	case code != 0 && pressed && k.pending.behaviour == PKInterruptAction2:
		action = k.pending.action2

	case k.pending.behaviour == PKUninterruptibleTapAction2 && !pressed:
		for _, ev := range k.pending.queue {
			if ev.Code == code {
				action = k.pending.action2
				break
			}
		}
	}

	if action.Op == OpNull {
		return true
	}

	// Snapshot and clear the pending slot before replaying, so a recursive
	// call into handlePendingKey (from processEvent inside the replay) sees
	// an unarmed resolver rather than re-entering this same slot.
	queue := append([]KeyEvent(nil), k.pending.queue...)
	pendingCode := k.pending.code
	dl := k.pending.dl

	k.pending.reset()

	k.cache.set(pendingCode, cacheEntry{descriptor: action, dl: dl})
	k.processDescriptor(pendingCode, &action, dl, true, time)

	k.processEvents(queue)

	return true
}
