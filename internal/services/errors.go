package services

import "errors"

// ErrorKind classifies service failures for the API boundary.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified, client-safe service error.
type Error struct {
	Kind    ErrorKind
	Message string
	// Fields carries per-field validation messages, keyed by input name.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind and message, so errors.Is works against the sentinels
// below and against validation errors built with Validation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

// Validation builds a KindValidation error with message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// FieldErrors builds a KindValidation error listing every invalid field.
func FieldErrors(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid input.", Fields: fields}
}

// KindOf classifies err; anything not built from *Error is internal.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

var (
	ErrEmailTaken         = &Error{Kind: KindValidation, Message: "user with this email already exists."}
	ErrUsernameTaken      = &Error{Kind: KindValidation, Message: "A user with that username already exists."}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "Invalid credentials"}
	ErrInvalidToken       = &Error{Kind: KindUnauthorized, Message: "Token is invalid or expired"}

	ErrFriendRequestSelf     = &Error{Kind: KindValidation, Message: "You cannot send a friend request to yourself."}
	ErrFriendRequestExists   = &Error{Kind: KindConflict, Message: "Friend request already sent."}
	ErrReceiverNotFound      = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrFriendRequestNotFound = &Error{Kind: KindNotFound, Message: "Friend request not found"}
	ErrNotReceiver           = &Error{Kind: KindForbidden, Message: "You do not have permission to change this friend request."}
	ErrRequestNotPending     = &Error{Kind: KindConflict, Message: "Friend request has already been answered."}
	ErrInvalidDirection      = &Error{Kind: KindValidation, Message: "direction must be 'sent' or 'received'."}
)
