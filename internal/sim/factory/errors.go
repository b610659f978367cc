package factory

import (
	"errors"
	"fmt"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory/placement"
)

// Rejection is returned when a command's preconditions do not hold. The
// state handed back alongside it is always the unchanged input.
type Rejection struct {
	Code   string
	Reason string
	err    error
}

func (r *Rejection) Error() string { return r.Reason }

func (r *Rejection) Unwrap() error { return r.err }

// reject formats a rejection; a %w verb keeps the wrapped error visible to errors.Is.
func reject(code, format string, args ...any) *Rejection {
	err := fmt.Errorf(format, args...)
	return &Rejection{Code: code, Reason: err.Error(), err: errors.Unwrap(err)}
}

// RejectionCode extracts the protocol code from err, or "" when err is not a Rejection.
func RejectionCode(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}

func errMachineNotFound(id string) *Rejection {
	return reject(protocol.ErrInvalidTarget, "machine %s not found", id)
}

func errGeneratorNotFound(id string) *Rejection {
	return reject(protocol.ErrInvalidTarget, "generator %s not found", id)
}

func errCredits(need, have int) *Rejection {
	return reject(protocol.ErrNoResource, "insufficient credits: need %d, have %d", need, have)
}

// errPlacement maps a placement failure to its code: occupied cells are
// E_NO_SPACE, anything else about the position is E_INVALID_TARGET.
func errPlacement(what string, err error) *Rejection {
	code := protocol.ErrInvalidTarget
	if errors.Is(err, placement.ErrCollision) {
		code = protocol.ErrNoSpace
	}
	return reject(code, "cannot place %s: %w", what, err)
}
