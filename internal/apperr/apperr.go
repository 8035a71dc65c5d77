// Package apperr holds the application error taxonomy shared by the store,
// the capture service and the views.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure. Kinds are comparable with errors.Is.
type Kind string

const (
	// PermissionDenied means camera, location or media-library access was refused
	PermissionDenied Kind = "permission_denied"
	// StorageUnavailable means the database could not be opened or prepared
	StorageUnavailable Kind = "storage_unavailable"
	// WriteError means an insert or delete failed
	WriteError Kind = "write_error"
	// LocationUnavailable means the best-effort location fix failed
	LocationUnavailable Kind = "location_unavailable"
)

func (k Kind) Error() string {
	return string(k)
}

// Error is a categorised application error
type Error struct {
	Kind        Kind
	Code        string
	Message     string
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches both the Kind and another *Error with the same Kind and Code
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind && e.Code == t.Code
	}
	return false
}

// GetUserMessage returns the message meant for the person using the app
func (e *Error) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// WithUserMessage returns a copy of e with the given user message
func (e *Error) WithUserMessage(msg string) *Error {
	c := *e
	c.UserMessage = msg
	return &c
}

// New creates an Error without an underlying cause
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Error around err
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the user-facing message of err, falling back to fallback
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.GetUserMessage() != "" {
		return e.GetUserMessage()
	}
	return fallback
}

// Predefined errors. Use Wrap to attach a cause and keep the Code.
var (
	ErrCameraDenied = New(PermissionDenied, "camera_denied", "camera permission denied").
			WithUserMessage("Camera permission is needed to capture images.")

	ErrCameraTimeout = New(PermissionDenied, "camera_timeout", "camera did not answer in time").
				WithUserMessage("The camera did not respond. Please try again.")

	ErrMediaLibraryDenied = New(PermissionDenied, "media_library_denied", "media library permission denied").
				WithUserMessage("Media library permission is needed to save images.")

	ErrLocationDenied = New(LocationUnavailable, "location_denied", "location permission denied")

	ErrLocationTimeout = New(LocationUnavailable, "location_timeout", "location fix timed out")

	ErrNoLocation = New(LocationUnavailable, "no_location", "no location source available")

	ErrEmptyURI = New(WriteError, "empty_uri", "uri must not be empty").
			WithUserMessage("The image reference is missing.")

	ErrPartialCoordinates = New(WriteError, "partial_coordinates", "latitude and longitude must be both present or both absent").
				WithUserMessage("Both latitude and longitude are required to tag a location.")

	ErrCoordinatesOutOfRange = New(WriteError, "coordinates_out_of_range", "coordinates out of range").
					WithUserMessage("The location is not a valid GPS coordinate.")
)
