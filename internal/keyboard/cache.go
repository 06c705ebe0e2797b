package keyboard

import "keyremapd/internal/keys"

// descriptorCache remembers, for every currently held physical key, the
// descriptor (and resolving layer) that was looked up when it went down, so
// that its matching release replays the exact same action (§4.5) rather
// than whatever happens to be bound on the current layer stack at release
// time. It is direct-scanned and bounded to CacheSize slots, which doubles
// as the "effective n-key rollover" ceiling described in §3: once full, a
// new key down is silently dropped rather than queued, the same trade-off
// real low-level keyboard firmware makes.
type descriptorCache struct {
	entries [CacheSize]cacheEntry
}

// get returns the entry for code, or nil if code is not currently cached.
func (c *descriptorCache) get(code keys.Code) *cacheEntry {
	for i := range c.entries {
		if c.entries[i].code == code {
			return &c.entries[i]
		}
	}
	return nil
}

// set installs ent under code, reusing a matching or empty slot. It
// reports false, changing nothing, if the cache is full and code is not
// already present - the caller must treat this as "drop the event".
func (c *descriptorCache) set(code keys.Code, ent cacheEntry) bool {
	slot := -1
	for i := range c.entries {
		if c.entries[i].code == code {
			slot = i
			break
		}
		if c.entries[i].code == 0 && slot == -1 {
			slot = i
		}
	}
	if slot == -1 {
		return false
	}

	ent.code = code
	c.entries[slot] = ent
	return true
}

// clear removes code's entry, if any (the tombstone reuse the direct scan
// in set relies on).
func (c *descriptorCache) clear(code keys.Code) {
	for i := range c.entries {
		if c.entries[i].code == code {
			c.entries[i] = cacheEntry{}
			return
		}
	}
}

// updateDescriptor rewrites the cached descriptor for an already-held code,
// used by OVERLOAD_IDLE_TIMEOUT so that the key's eventual release runs the
// branch its press chose rather than the OVERLOAD_IDLE_TIMEOUT descriptor.
func (c *descriptorCache) updateDescriptor(code keys.Code, d Descriptor) {
	if ent := c.get(code); ent != nil {
		ent.descriptor = d
	}
}
