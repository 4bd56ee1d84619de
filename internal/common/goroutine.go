// -----------------------------------------------------------------------
// Panic guard - recover wrapper for per-subscriber work and scheduled runs
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// PanicError wraps a recovered panic value with the captured stack
type PanicError struct {
	Name  string
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Name, e.Value)
}

// Guard runs fn and converts a panic into a *PanicError.
// Errors returned by fn pass through unchanged.
func Guard(logger arbor.ILogger, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := captureStack()
			if logger != nil {
				logger.Error().
					Str("scope", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stackTrace).
					Msg("Recovered from panic")
			}
			err = &PanicError{Name: name, Value: r, Stack: stackTrace}
		}
	}()

	return fn()
}

func captureStack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
