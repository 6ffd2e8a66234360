package extractor

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes run failures.
type ErrorKind string

const (
	KindNoListings      ErrorKind = "no_listings_found"
	KindPartial         ErrorKind = "extraction_partial_failure"
	KindCommunication   ErrorKind = "communication_failure"
	KindTimeout         ErrorKind = "timeout"
	KindHostUnavailable ErrorKind = "host_unavailable"
)

// Error is a structured run failure. Page carries the diagnostics gathered
// from the page when they are available.
type Error struct {
	Kind    ErrorKind
	Message string
	Page    *PageContext
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns a message fit for showing to whoever started the run.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNoListings:
		if e.Page != nil && !e.Page.OnMarketplace {
			return "No listings found. This page does not look like a marketplace page; navigate to a search or category page first."
		}
		return "No listings found on this page. The page layout may have changed."
	case KindCommunication:
		return "Lost contact with the analysis run. Please try again."
	case KindTimeout:
		return "The analysis took too long and was abandoned."
	case KindHostUnavailable:
		return fmt.Sprintf("Could not read the page: %s", e.Message)
	default:
		return e.Message
	}
}

// Details flattens the error into key/value context for progress events.
func (e *Error) Details() map[string]string {
	d := map[string]string{"kind": string(e.Kind)}
	if e.Page != nil {
		for k, v := range e.Page.Fields() {
			d[k] = v
		}
	}
	return d
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newNoListingsError(page *PageContext) *Error {
	return &Error{
		Kind:    KindNoListings,
		Message: fmt.Sprintf("no listing candidates found on %s", page.URL),
		Page:    page,
	}
}

func newHostError(message string, cause error) *Error {
	return &Error{
		Kind:    KindHostUnavailable,
		Message: message,
		Cause:   cause,
	}
}

func newCommunicationError(cause error) *Error {
	return &Error{
		Kind:    KindCommunication,
		Message: "final result could not be delivered",
		Cause:   cause,
	}
}

// NewTimeoutError reports a run abandoned by the caller's deadline.
func NewTimeoutError(cause error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: "analysis run exceeded its time limit",
		Cause:   cause,
	}
}
