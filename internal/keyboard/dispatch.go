package keyboard

import (
	"time"

	"keyremapd/internal/keys"
	"keyremapd/internal/macro"
)

// Keyboard is one single-threaded remapping core instance: one physical
// device's worth of layer stack, caches and in-flight resolvers, driving
// one OutputSink. Every exported method borrows it exclusively for the
// call's duration (package doc).
type Keyboard struct {
	config *Config
	sink   OutputSink

	macroExecutor *macro.Executor
	commandRunner CommandRunner

	// Logger receives diagnostics (command failures, unexpected macro
	// errors) that don't rise to the level of a Fault. Defaults to a no-op.
	Logger func(format string, args ...any)

	layerState   []LayerState
	cache        descriptorCache
	pending      pendingKey
	chord        chordResolverData
	activeChords [MaxActiveChords]activeChord

	keystate              [256]bool
	lastPressedOutputCode keys.Code
	lastPressedCode       keys.Code
	lastSimpleKeyTime     Tick
	inhibitModifierGuard  bool

	oneshotLatch   bool
	oneshotTimeout Tick

	overloadStartTime Tick

	activeMacro         *macro.Macro
	activeMacroLayer    int
	macroTimeout        Tick
	macroRepeatInterval Tick

	scroll struct {
		active      bool
		sensitivity int
	}

	timeouts []Tick
	ordinal  Tick

	backups []configBackup
}

// CommandRunner dispatches a COMMAND descriptor's shell command by index
// (§4.8), normally backed by internal/privdrop.
type CommandRunner interface {
	Run(idx int) error
}

// NewKeyboard builds a Keyboard over cfg, wired to sink for output and
// runner for COMMAND/cmd(...) dispatch. Layer 0 starts active; if cfg
// names a default layout it is activated too (§3, mirroring new_keyboard).
func NewKeyboard(cfg *Config, sink OutputSink, runner CommandRunner) *Keyboard {
	k := &Keyboard{
		config:        cfg,
		sink:          sink,
		commandRunner: runner,
		layerState:    make([]LayerState, len(cfg.Layers)),
		Logger:        func(string, ...any) {},
	}
	k.macroExecutor = macro.NewExecutor(commandRunnerAdapter{k})
	k.macroExecutor.OnError = func(err error) { k.Logger("command failed: %v", err) }

	k.layerState[0].Active = 1
	k.layerState[0].ActivationTime = 0

	if cfg.DefaultLayout != "" {
		for i := range cfg.Layers {
			if cfg.Layers[i].Type == LayerLayout && cfg.Layers[i].Name == cfg.DefaultLayout {
				k.layerState[i].Active = 1
				k.layerState[i].ActivationTime = 1
				break
			}
		}
	}

	k.backups = append(k.backups, snapshotConfig(cfg))

	return k
}

// commandRunnerAdapter lets a Keyboard's CommandRunner (indexed by the
// config's command pool) satisfy macro.CommandRunner for cmd(...)/
// command(...) macro entries, which address the same pool.
type commandRunnerAdapter struct{ k *Keyboard }

func (a commandRunnerAdapter) Run(idx int) error {
	if a.k.commandRunner == nil {
		return nil
	}
	return a.k.commandRunner.Run(idx)
}

// SendKey lets Keyboard itself serve as a macro.Output: macro execution
// goes through the same keystate-deduplicating path as descriptor
// execution (internal/macro's doc comment), rather than writing straight
// to the sink.
func (k *Keyboard) SendKey(code keys.Code, pressed bool) {
	k.sendKey(code, pressed)
}

func (k *Keyboard) runCommand(idx int) {
	if k.commandRunner == nil {
		return
	}
	if err := k.commandRunner.Run(idx); err != nil {
		k.Logger("command failed: %v", err)
	}
}

// macroEntryTimeout converts the current macro repeat interval
// (macro_repeat_timeout, or a MACRO2 descriptor's own repeat argument,
// expressed in milliseconds like every other config timeout) into the real
// inter-entry delay handed to the executor's Sleeper.
func (k *Keyboard) macroEntryTimeout() time.Duration {
	return time.Duration(k.macroRepeatInterval) * time.Millisecond
}

// scheduleTimeout records an absolute deadline, faulting if the bounded
// schedule is already full (§5, §7 - a real config can't produce more than
// MaxTimeouts concurrently pending deadlines; hitting the cap is a bug).
func (k *Keyboard) scheduleTimeout(deadline Tick) {
	if len(k.timeouts) >= MaxTimeouts {
		fault("timeout schedule overflow")
	}
	k.timeouts = append(k.timeouts, deadline)
}

// calculateMainLoopTimeout compacts the expired deadlines out of the
// schedule and returns how long the caller may safely block before the
// next one fires (0 meaning "no pending deadline").
func (k *Keyboard) calculateMainLoopTimeout(time Tick) Tick {
	var timeout Tick
	kept := k.timeouts[:0]

	for _, t := range k.timeouts {
		if t > time {
			if timeout == 0 || t < timeout {
				timeout = t
			}
			kept = append(kept, t)
		}
	}

	k.timeouts = kept
	if timeout == 0 {
		return 0
	}
	return timeout - time
}

// ProcessEvents feeds a batch of physical key events through the core,
// synthesizing tick-only events (code 0) for any timeout that elapses
// between two real events (§5, §6). It returns the delay before the next
// call is required.
func (k *Keyboard) ProcessEvents(events []KeyEvent) Tick {
	return k.processEvents(events)
}

func (k *Keyboard) processEvents(events []KeyEvent) Tick {
	var timeout Tick
	timeoutTS := Tick(0)
	i := 0

	for i != len(events) {
		ev := &events[i]

		if timeout > 0 && timeoutTS <= ev.Timestamp {
			timeout = k.processEvent(0, false, timeoutTS)
			timeoutTS += timeout
		} else {
			timeout = k.processEvent(ev.Code, ev.Pressed, ev.Timestamp)
			timeoutTS = ev.Timestamp + timeout
			i++
		}
	}

	return timeout
}

// processEvent is the dispatcher's single entry point for one physical
// event (or a code-0 tick): chord resolution, then pending-key resolution,
// then oneshot-expiry and macro-repeat bookkeeping, then ordinary
// press/release handling through the descriptor cache (§4, mirroring
// process_event almost line for line).
func (k *Keyboard) processEvent(code keys.Code, pressed bool, time Tick) Tick {
	if k.handleChord(code, pressed, time) {
		return 0
	}
	if k.handlePendingKey(code, pressed, time) {
		return 0
	}

	if k.oneshotTimeout != 0 && time >= k.oneshotTimeout {
		k.clearOneshot()
		k.updateMods(-1, 0)
	}

	if k.activeMacro != nil {
		if code != 0 {
			k.activeMacro = nil
			k.updateMods(-1, 0)
		} else if time >= k.macroTimeout {
			k.executeMacro(k.activeMacroLayer, k.activeMacro)
			k.macroTimeout = time + k.macroRepeatInterval
			k.scheduleTimeout(k.macroTimeout)
		}
	}

	if code == 0 {
		return k.calculateMainLoopTimeout(time)
	}

	var d Descriptor
	dl := 0

	if pressed {
		// Guard against successive key-down events of the same code: can be
		// caused by unorthodox hardware or several devices sharing a config.
		if k.cache.get(code) != nil {
			return k.calculateMainLoopTimeout(time)
		}

		d, dl = k.lookupDescriptor(code)

		if !k.cache.set(code, cacheEntry{descriptor: d, dl: dl}) {
			return k.calculateMainLoopTimeout(time)
		}
	} else {
		ent := k.cache.get(code)
		if ent == nil {
			return k.calculateMainLoopTimeout(time)
		}

		d = ent.descriptor
		dl = ent.dl
		k.cache.clear(code)
	}

	k.processDescriptor(code, &d, dl, pressed, time)

	return k.calculateMainLoopTimeout(time)
}
