// Package stackutil captures and formats call stacks for the logging hooks
// and the query logger.
package stackutil

import (
	"fmt"
	"runtime"
)

// GetStack returns up to depth frames of the caller's stack, dropping skip
// frames from the top. The frames for GetStack itself and runtime.Callers are
// always dropped.
func GetStack(depth, skip int) []runtime.Frame {
	pc := make([]uintptr, depth)

	n := runtime.Callers(0, pc)
	if n == 0 {
		return []runtime.Frame{}
	}

	frames := runtime.CallersFrames(pc[:n])

	// skip this call and the one to runtime.Callers
	skip += 2

	a := make([]runtime.Frame, 0, n)

	for i := 0; ; i++ {
		frame, more := frames.Next()

		if i >= skip {
			a = append(a, frame)
		}

		if !more {
			break
		}
	}

	return a
}

// FormatStack renders each frame as "file:line: function".
func FormatStack(a []runtime.Frame) []string {
	r := make([]string, len(a))
	for i, e := range a {
		r[i] = FormatStackFrame(e)
	}
	return r
}

func FormatStackFrame(f runtime.Frame) string {
	return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Function)
}
