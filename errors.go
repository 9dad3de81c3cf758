// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// Result is a kernel call result code.
//
// The numeric values are part of the emulated ABI: guest binaries branch on
// them, so they must never change. Negative values are errors, zero is
// success.
type Result int32

// Result codes.
const (
	ResultOK       Result = 0
	ResultAccess   Result = -1
	ResultExists   Result = -2
	ResultIntr     Result = -3
	ResultInvalid  Result = -4
	ResultMax      Result = -5
	ResultNoExists Result = -6
)

var resultNames = map[Result]string{
	ResultOK:       "OK",
	ResultAccess:   "Access",
	ResultExists:   "Exists",
	ResultIntr:     "Intr",
	ResultInvalid:  "Invalid",
	ResultMax:      "Max",
	ResultNoExists: "NoExists",
}

var resultDescriptions = map[Result]string{
	ResultOK:       "Success",
	ResultAccess:   "Permission denied",
	ResultExists:   "Already exists",
	ResultIntr:     "Interrupted",
	ResultInvalid:  "Invalid argument or identifier",
	ResultMax:      "Resource limit reached or operation would block",
	ResultNoExists: "Does not exist",
}

func (r Result) String() string {
	name, ok := resultNames[r]
	if ok {
		return name
	}
	return fmt.Sprintf("{Result %d}", int32(r))
}

// Description returns a short description about the result code.
func (r Result) Description() string {
	desc, ok := resultDescriptions[r]
	if ok {
		return desc
	}
	return fmt.Sprintf("{Result %d}", int32(r))
}

// Error implements error. It returns the bare name so a Result prints the
// same through fmt whether or not it is used as an error.
func (r Result) Error() string {
	return r.String()
}

// Err returns nil for ResultOK and r otherwise.
func (r Result) Err() error {
	if r == ResultOK {
		return nil
	}
	return r
}

// Is reports ResultMax as equivalent to [ErrWouldBlock]: the call could not
// proceed without suspending the caller.
func (r Result) Is(target error) bool {
	return r == ResultMax && target == iox.ErrWouldBlock
}

// ParseResult returns the result code with the given name.
func ParseResult(name string) (Result, bool) {
	for r, n := range resultNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// ErrWouldBlock indicates a NonBlocking call found its queue full or empty.
//
// ResultMax matches it through errors.Is. This is an alias for
// [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrNotImplemented marks collaborator behavior the emulated kernel is known
// to leave undone.
var ErrNotImplemented = errors.New("kmq: not implemented")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
