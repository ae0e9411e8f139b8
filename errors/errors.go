// Package errors defines the closed set of error kinds the kernel
// surfaces behind a single wrapping Error type: a code, a message, and a
// wrapped cause reachable through errors.Is/As.
package errors

import (
	"errors"
	"fmt"
	"reflect"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ERR is the closed set of error kinds the kernel can produce.
type ERR int32

const (
	ERR_UNKNOWN ERR = iota
	ERR_OUT_OF_GAS
	ERR_IMMUTABLE_STATE
	ERR_EXCEED_MAX_QUERY_DEPTH
	ERR_EXCEED_MAX_MESSAGE_DEPTH
	ERR_SERDE
	ERR_PARSE
	ERR_DATA_NOT_FOUND
	ERR_VM
	ERR_VERIFICATION
	ERR_OVERFLOW
	ERR_DIVISION_BY_ZERO
	ERR_NEGATIVE_SQRT
	ERR_HOST
	ERR_NOT_FOUND
	ERR_INVALID_ARGUMENT
	ERR_THRESHOLD_EXCEEDED
	ERR_ALREADY_EXISTS
	ERR_UNAUTHORIZED
)

var errNames = map[ERR]string{
	ERR_UNKNOWN:                "unknown",
	ERR_OUT_OF_GAS:             "out_of_gas",
	ERR_IMMUTABLE_STATE:        "immutable_state",
	ERR_EXCEED_MAX_QUERY_DEPTH: "exceed_max_query_depth",
	ERR_EXCEED_MAX_MESSAGE_DEPTH: "exceed_max_message_depth",
	ERR_SERDE:              "serde",
	ERR_PARSE:              "parse",
	ERR_DATA_NOT_FOUND:     "data_not_found",
	ERR_VM:                 "vm",
	ERR_VERIFICATION:       "verification",
	ERR_OVERFLOW:           "overflow",
	ERR_DIVISION_BY_ZERO:   "division_by_zero",
	ERR_NEGATIVE_SQRT:      "negative_sqrt",
	ERR_HOST:               "host",
	ERR_NOT_FOUND:          "not_found",
	ERR_INVALID_ARGUMENT:   "invalid_argument",
	ERR_THRESHOLD_EXCEEDED: "threshold_exceeded",
	ERR_ALREADY_EXISTS:     "already_exists",
	ERR_UNAUTHORIZED:       "unauthorized",
}

func (c ERR) String() string {
	if n, ok := errNames[c]; ok {
		return n
	}
	return "unrecognized"
}

// Error wraps a kernel error kind with a message and an optional cause.
type Error struct {
	Code       ERR
	Message    string
	WrappedErr error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.WrappedErr == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.WrappedErr)
}

// Is reports whether error codes match, climbing wrapped causes.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var ue *Error
	if errors.As(target, &ue) {
		if e.Code == ue.Code {
			return true
		}
	}
	if unwrapped := errors.Unwrap(e); unwrapped != nil {
		if ue, ok := unwrapped.(*Error); ok {
			return ue.Is(target)
		}
	}
	return false
}

func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}
	if e.WrappedErr != nil {
		if reflect.ValueOf(e.WrappedErr).Kind() == reflect.Ptr && reflect.ValueOf(e.WrappedErr).IsNil() {
			return false
		}
		return errors.As(e.WrappedErr, target)
	}
	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.WrappedErr
}

// New constructs an Error, optionally wrapping a trailing error/*Error arg
// and formatting message with any remaining args.
func New(code ERR, message string, params ...interface{}) *Error {
	var wrapped error

	if len(params) > 0 {
		last := params[len(params)-1]
		if err, ok := last.(error); ok {
			wrapped = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	return &Error{Code: code, Message: message, WrappedErr: wrapped}
}

// Is delegates to the standard library.
func Is(err, target error) bool { return errors.Is(err, target) }

// As delegates to the standard library.
func As(err error, target any) bool { return errors.As(err, target) }

// Join concatenates non-nil error messages.
func Join(errs ...error) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	joined := msgs[0]
	for _, m := range msgs[1:] {
		joined += "; " + m
	}
	return errors.New(joined)
}

// GRPCCode maps a kernel error kind onto a gRPC status code, for the ABCI/
// gRPC consensus adapter to marshal errors to clients.
func GRPCCode(code ERR) codes.Code {
	switch code {
	case ERR_NOT_FOUND, ERR_DATA_NOT_FOUND:
		return codes.NotFound
	case ERR_INVALID_ARGUMENT, ERR_PARSE, ERR_SERDE:
		return codes.InvalidArgument
	case ERR_THRESHOLD_EXCEEDED, ERR_OUT_OF_GAS:
		return codes.ResourceExhausted
	case ERR_UNAUTHORIZED:
		return codes.PermissionDenied
	case ERR_ALREADY_EXISTS:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// ToGRPCStatus converts an Error into a gRPC status error.
func ToGRPCStatus(err *Error) error {
	if err == nil {
		return nil
	}
	return status.Error(GRPCCode(err.Code), err.Error())
}

// Sentinel errors used with errors.Is comparisons by callers.
var (
	ErrOutOfGas             = &Error{Code: ERR_OUT_OF_GAS, Message: "out of gas"}
	ErrImmutableState       = &Error{Code: ERR_IMMUTABLE_STATE, Message: "cannot write in an immutable context"}
	ErrExceedMaxQueryDepth  = &Error{Code: ERR_EXCEED_MAX_QUERY_DEPTH, Message: "exceeded max query depth"}
	ErrExceedMaxMessageDepth = &Error{Code: ERR_EXCEED_MAX_MESSAGE_DEPTH, Message: "exceeded max message depth"}
	ErrDataNotFound         = &Error{Code: ERR_DATA_NOT_FOUND, Message: "data not found"}
	ErrOverflow             = &Error{Code: ERR_OVERFLOW, Message: "arithmetic overflow"}
	ErrDivisionByZero       = &Error{Code: ERR_DIVISION_BY_ZERO, Message: "division by zero"}
	ErrNegativeSqrt         = &Error{Code: ERR_NEGATIVE_SQRT, Message: "square root of negative number"}
)
