// Package keyboard implements the per-device event-processing core: the
// layer stack, descriptor resolver, pending-key (tap/hold) resolver, chord
// resolver, modifier engine, descriptor cache and macro dispatch described
// by the remapping specification. It consumes a stream of physical key
// events and drives an OutputSink with the resulting logical key events.
//
// The core is single-threaded and cooperative: every exported method on
// Keyboard borrows the instance exclusively for the duration of the call.
package keyboard

import "keyremapd/internal/keys"

// Tick is an abstract monotonic instant supplied by the caller with every
// event. It is never read from the wall clock inside this package -
// callers own time.
type Tick = int64

// KeyEvent is one physical key transition. Code 0 means "tick only,
// process pending timeouts" (§6).
type KeyEvent struct {
	Code      keys.Code
	Pressed   bool
	Timestamp Tick
}

// Op is the tagged operation carried by a Descriptor.
type Op uint8

const (
	OpNull Op = iota
	OpKeySequence
	OpLayer
	OpLayerM
	OpOneshot
	OpOneshotM
	OpToggle
	OpToggleM
	OpLayout
	OpOverload
	OpOverloadTimeout
	OpOverloadTimeoutTap
	OpOverloadIdleTimeout
	OpTimeout
	OpMacro
	OpMacro2
	OpSwap
	OpSwapM
	OpClear
	OpClearM
	OpCommand
	OpScroll
	OpScrollToggle
)

// Arg is one of the three fixed argument slots a Descriptor carries. Only
// the fields relevant to the owning Op are populated; this flattened
// struct plays the role the original C union played, without resorting to
// an interface/vtable for something this hot.
type Arg struct {
	Code        keys.Code
	Mods        keys.Modifier
	LayerIdx    int
	MacroIdx    int
	CommandIdx  int
	DescIdx     int // index into Config.Descriptors, used by TIMEOUT/OVERLOAD*
	Timeout     Tick
	Sensitivity int
}

// Descriptor is the tagged action bound to a key on a layer (§3).
type Descriptor struct {
	Op   Op
	Args [3]Arg
}

// NullDescriptor is the resolver fallback value.
var NullDescriptor = Descriptor{Op: OpNull}

// LayerType distinguishes the three layer kinds (§3).
type LayerType uint8

const (
	LayerNormal LayerType = iota
	LayerLayout
	LayerComposite
)

// MaxChordKeys bounds the key set size of a single chord (§3: "N small,
// e.g. 8").
const MaxChordKeys = 8

// Chord is an unordered set of up to MaxChordKeys codes bound to a single
// descriptor (§3, §4.7). Unused slots are zero.
type Chord struct {
	Keys       [MaxChordKeys]keys.Code
	Descriptor Descriptor
}

// size returns the number of non-zero key slots.
func (c *Chord) size() int {
	n := 0
	for _, k := range c.Keys {
		if k != 0 {
			n++
		}
	}
	return n
}

// Layer is a named remapping table (§3).
type Layer struct {
	Name         string
	Type         LayerType
	Mods         keys.Modifier
	Keymap       [256]Descriptor
	Chords       []Chord
	Constituents []int // COMPOSITE only: indices into Config.Layers
}

// LayerState is the mutable, per-layer activation bookkeeping (§3).
type LayerState struct {
	Active         uint8
	Toggled        bool
	OneshotDepth   uint8
	ActivationTime Tick
}

const (
	// CacheSize bounds the descriptor cache (§3: "Effectively n-key rollover").
	CacheSize = 16
	// MaxTimeouts bounds the scheduled absolute-deadline set (§5).
	MaxTimeouts = 64
	// MaxQueuedEvents bounds the chord and pending-key replay queues (§5).
	MaxQueuedEvents = 32
	// MaxActiveChords is the number of virtual chord codes available.
	MaxActiveChords = int(keys.ChordMax-keys.Chord1) + 1
)

// cacheEntry remembers, for a currently-held input code, the exact
// descriptor that was resolved at press-time (§4.5) plus the layer it
// was resolved against (DL) and the layer it is currently responsible
// for activating (ActivatesLayer, rewritten in place by SWAP/OVERLOAD_
// IDLE_TIMEOUT).
type cacheEntry struct {
	code           keys.Code
	descriptor     Descriptor
	dl             int
	activatesLayer int
}

// pendingBehaviour selects how the pending-key resolver reacts to an
// interrupting event (§4.6).
type pendingBehaviour uint8

const (
	PKInterruptAction1 pendingBehaviour = iota
	PKInterruptAction2
	PKUninterruptible
	PKUninterruptibleTapAction2
)

type pendingKey struct {
	code      keys.Code
	dl        int
	expire    Tick
	tapExpiry Tick
	behaviour pendingBehaviour
	action1   Descriptor
	action2   Descriptor
	queue     []KeyEvent
}

func (p *pendingKey) armed() bool { return p.code != 0 }

func (p *pendingKey) reset() {
	p.code = 0
	p.tapExpiry = 0
	p.queue = p.queue[:0]
}

// chordResolverState is the chord state machine's current phase (§4.7).
type chordResolverState uint8

const (
	ChordInactive chordResolverState = iota
	ChordPendingDisambiguation
	ChordPendingHoldTimeout
	ChordResolving
)

type chordResolverData struct {
	state         chordResolverState
	queue         []KeyEvent
	match         *Chord
	matchLayer    int
	lastCodeTime  Tick
}

type activeChord struct {
	active bool
	chord  Chord
	layer  int
}
