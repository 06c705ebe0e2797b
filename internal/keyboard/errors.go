package keyboard

import "fmt"

// Fault marks an invariant violation: cache overflow, queue overflow, an
// unknown descriptor op reaching execution. Per §7 these are bugs, never
// user input, so the core panics with a Fault rather than returning an
// error the caller could paper over.
type Fault struct {
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("keyboard: invariant violation: %s", f.Reason)
}

func fault(format string, args ...any) {
	panic(&Fault{Reason: fmt.Sprintf(format, args...)})
}
