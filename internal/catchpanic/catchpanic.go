// Package catchpanic converts panics into errors so a misbehaving job
// handler can't take the whole worker loop down with it.
package catchpanic

import (
	"fmt"
)

// Catch runs fn and returns any panic it raises as an error. Panic values
// that are already errors are wrapped so errors.Is and errors.As still work.
func Catch(fn func()) (err error) {
	defer func() {
		if ex := recover(); ex != nil {
			if err1, ok := ex.(error); ok {
				err = fmt.Errorf("catchpanic.Catch: %w", err1)
			} else {
				err = fmt.Errorf("catchpanic.Catch: %s", ex)
			}
		}
	}()

	fn()

	return
}

// CatchErr1 runs fn and returns its result and error. A panic takes
// precedence over any error fn had already assigned.
func CatchErr1[T any](fn func() (T, error)) (T, error) {
	var res T
	var err error

	if err1 := Catch(func() { res, err = fn() }); err1 != nil {
		err = err1
	}

	return res, err
}
