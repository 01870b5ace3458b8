package bookalope

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedToken     = errors.New("malformed bookalope token")
	ErrEmptyDocument      = errors.New("document data cannot be empty")
	ErrEmptyImage         = errors.New("image data cannot be empty")
	ErrEmptyFilename      = errors.New("filename cannot be empty")
	ErrDocumentAlreadySet = errors.New("unable to set document because one is already set")
	ErrNotConverted       = errors.New("book has not been converted yet")
	ErrConversionNotReady = errors.New("converted book is not ready for download")
	ErrImageStep          = errors.New("unable to add image unless the bookflow is in the convert step")
	ErrProcessingFailed   = errors.New("bookalope failed to process the document")
	ErrConversionFailed   = errors.New("bookalope failed to convert the document")
	ErrPollTimeout        = errors.New("polling exceeded the maximum duration")
	ErrWorkflowBusy       = errors.New("another workflow session is already running")
)

// ErrorKind classifies a failed API call by the transport-level cause.
type ErrorKind int

const (
	// KindConnection marks a network-level failure with no server response.
	KindConnection ErrorKind = iota
	// KindClient marks a 4xx response.
	KindClient
	// KindServer marks a 5xx response.
	KindServer
	// KindUnexpected marks a status outside the ranges the API ever returns
	// on purpose (1xx and 3xx).
	KindUnexpected
	// KindMalformed marks a success response whose body did not decode into
	// the expected shape.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindClient:
		return "client error"
	case KindServer:
		return "server error"
	case KindUnexpected:
		return "unexpected response"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown error"
	}
}

// APIError is the error type for every failed call against the Bookalope
// server. Message carries the server-provided description when one was
// present in the response body.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return e.Kind.String()
}

func (e *APIError) Unwrap() error {
	return e.err
}

// IsErrorKind reports whether err is an APIError of the given kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// ValidationError reports a locally rejected workflow input, before any
// request is sent. Field names the offending form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
