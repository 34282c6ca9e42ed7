// Package errutil provides the contract-violation helpers shared by every
// succinct structure in this module. Out-of-range access, malformed input
// to a builder, and other programmer errors are fatal: they panic rather
// than returning an error, matching the "OutOfRange is a contract
// violation" policy.
package errutil

import (
	"errors"
	"fmt"
)

// ErrIncompatibleFormat is returned (wrapped with context) by every
// structure's Deserialize when a serial-version tag doesn't match the
// format the running code knows how to read, or the byte stream is
// otherwise malformed/truncated.
var ErrIncompatibleFormat = errors.New("incompatible serialized format")

// debug gates the expensive invariant checks (BugOn/Bug). Flip to true
// when chasing a broadword or bucketing bug; leave false otherwise since
// many of these checks run on every rank/select/EF query.
const debug = false

// FatalIf panics if err is non-nil. Used on code paths that are expected to
// never fail (e.g. writes to an in-memory buffer) so the error can still be
// checked without threading it through every caller.
func FatalIf(err error) {
	if err == nil {
		return
	}
	panic(fmt.Sprintf("FATAL: %v", err))
}

// Bug panics unconditionally with a formatted message when debug checks are
// enabled; a no-op otherwise.
func Bug(format string, args ...any) {
	if debug {
		panic(fmt.Sprintf(format, args...))
	}
}

// BugOn panics with a formatted message if cond is true and debug checks
// are enabled.
func BugOn(cond bool, format string, args ...any) {
	if debug && cond {
		Bug(format, args...)
	}
}

// OutOfRange always panics, regardless of the debug flag: index/rank
// bounds violations are contract violations per spec, not optional checks.
func OutOfRange(format string, args ...any) {
	panic(fmt.Sprintf("out of range: %s", fmt.Sprintf(format, args...)))
}

// TooLarge always panics: a representational limit (e.g. a bitvector
// Append width over 64) was exceeded.
func TooLarge(format string, args ...any) {
	panic(fmt.Sprintf("too large: %s", fmt.Sprintf(format, args...)))
}
