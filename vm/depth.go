package vm

import grugerrors "github.com/left-curve/grug/errors"

// Recursion caps: a query re-entering the app, or a
// contract's submessages spawning further submessages, must terminate.
const (
	MaxQueryDepth   = 3
	MaxMessageDepth = 16
)

func CheckQueryDepth(depth int) error {
	if depth > MaxQueryDepth {
		return grugerrors.ErrExceedMaxQueryDepth
	}
	return nil
}

func CheckMessageDepth(depth int) error {
	if depth > MaxMessageDepth {
		return grugerrors.ErrExceedMaxMessageDepth
	}
	return nil
}
