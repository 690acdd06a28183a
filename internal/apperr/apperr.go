// Package apperr classifies failures so transport layers can map them to
// status codes and channel error frames without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindUnknown covers everything not explicitly classified.
	KindUnknown Kind = iota
	// KindValidation: malformed or out-of-range input, rejected before any
	// state change.
	KindValidation
	// KindConflict: operation invalid for the current state (frame already
	// active, frame already finalized, match already complete).
	KindConflict
	// KindNotFound: unknown match/frame/event/profile id.
	KindNotFound
	// KindTransient: persistence or network failure; the effect is unknown
	// to the caller, who should re-fetch authoritative state before any
	// retry.
	KindTransient
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Transient(msg string, err error) error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsTransient(err error) bool  { return KindOf(err) == KindTransient }
