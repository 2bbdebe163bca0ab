package common

import (
	"fmt"
	"runtime/debug"
)

// SafeGo launches fn in a new goroutine, recovering any panic and logging it
// with a stack trace instead of crashing the process.
func SafeGo(logger *Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("recovered panic in background goroutine")
			}
		}()
		fn()
	}()
}
