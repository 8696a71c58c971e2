package services

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The values double as the "error" field of HTTP error bodies.
type Kind string

const (
	KindBadRequest    Kind = "BadRequest"
	KindNotFound      Kind = "NotFound"
	KindInvalidParent Kind = "InvalidParent"
	KindWouldCycle    Kind = "WouldCycle"
	KindConflict      Kind = "Conflict"
	KindInternal      Kind = "Internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) ignores the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrBadRequest    = &Error{Kind: KindBadRequest, Message: "bad request"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "menu not found"}
	ErrInvalidParent = &Error{Kind: KindInvalidParent, Message: "invalid parent"}
	ErrWouldCycle    = &Error{Kind: KindWouldCycle, Message: "move would create a cycle"}
	ErrHasChildren   = &Error{Kind: KindConflict, Message: "menu has children"}
)

func badRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("menu %q not found", id)}
}

func invalidParent(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidParent, Message: fmt.Sprintf(format, args...)}
}

func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf reports the Kind carried by err; anything unclassified is Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing text for err. Internal causes are not exposed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
