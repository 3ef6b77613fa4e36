// Package invariant reports contract violations: states that can only be
// reached through caller misuse or a broken model invariant. They abort the
// current operation with a panic carrying a *Violation and are never retried.
package invariant

import (
	"fmt"

	"github.com/kobzarvs/qdraft/internal/logger"
)

// Violation is the panic value raised by Check and Fail.
type Violation struct {
	Message string
}

func (v *Violation) Error() string { return "invariant violation: " + v.Message }

// Check panics with a *Violation when cond is false.
func Check(cond bool, format string, args ...any) {
	if cond {
		return
	}
	Fail(format, args...)
}

// Fail unconditionally raises a violation.
func Fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Named("invariant").Errorw("contract violation", "msg", msg)
	panic(&Violation{Message: msg})
}

// Recover turns a violation raised below it into an error stored in *errp.
// Other panics propagate. Use it only at process boundaries:
//
//	func run() (err error) {
//		defer invariant.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		*errp = v
		return
	}
	panic(r)
}
