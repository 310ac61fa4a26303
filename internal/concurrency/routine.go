package concurrency

import (
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

var recoveredPanics atomic.Int64

// SafeGo runs fn on its own goroutine. A panic is logged under name with its
// stack, counted, and handed to onPanic when set.
func SafeGo(name string, fn func(), onPanic func(any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				recoveredPanics.Add(1)
				slog.Error("Panic recovered", "routine", name, "panic", r, "stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

// RecoveredPanics counts panics SafeGo has swallowed since the process started.
func RecoveredPanics() int64 {
	return recoveredPanics.Load()
}
