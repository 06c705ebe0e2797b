package keyboard

import "keyremapd/internal/keys"

// OutputSink is the capability set the core drives: emit a key edge, and
// notify observers of layer activation changes (§4.2). The core never
// retains state inside the sink and must tolerate reentrant calls (macro
// execution nested inside descriptor execution nested inside event
// processing).
type OutputSink interface {
	SendKey(code keys.Code, pressed bool)
	OnLayerChange(layer *Layer, active bool)
}

// NopSink discards everything; useful for tests that only assert on
// Keyboard's own observable state (keystate, layer activations) via a
// RecordingSink instead.
type NopSink struct{}

func (NopSink) SendKey(keys.Code, bool)     {}
func (NopSink) OnLayerChange(*Layer, bool)  {}
