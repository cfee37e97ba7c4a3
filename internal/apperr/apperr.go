// Package apperr defines the error taxonomy shared by the capture and delivery pipeline.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindCapture covers encoding and device failures.
	KindCapture Kind = "capture"
	// KindSinkFailure covers I/O and transport errors inside a sink.
	KindSinkFailure Kind = "sink_failure"
	// KindExpired marks a delivery whose deadline passed before or during the attempt.
	KindExpired Kind = "expired"
	// KindBadResponse marks a remote endpoint answering with anything but 200 OK.
	KindBadResponse Kind = "bad_response"
	// KindConfig covers settings rejected at apply time.
	KindConfig  Kind = "configuration"
	KindUnknown Kind = "unknown"
)

// ErrTimeout is wrapped into delivery errors caused by an attempt exceeding its timeout.
var ErrTimeout = errors.New("timeout")

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches kind and operation context to err. A nil err stays nil.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// KindOf returns the kind of the outermost *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// IsKind checks whether the outermost *Error in the chain has the provided kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
