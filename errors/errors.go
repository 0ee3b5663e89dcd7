// Package errors provides error types and handling for signed S3 requests.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a failed S3 request with context about the request that failed.
// It wraps transport, signing and protocol failures alike.
type Error struct {
	// Op is the operation that failed (e.g., "GET", "putObject", "stream")
	Op string

	// Method is the HTTP method of the request (if applicable)
	Method string

	// Path is the resource path of the request (if applicable)
	Path string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Method != "" && e.Path != "" {
		return fmt.Sprintf("s3sig.%s %s %s: %v", e.Op, e.Method, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("s3sig.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("s3sig.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithMethod adds the HTTP method to an existing error.
func (e *Error) WithMethod(method string) *Error {
	e.Method = method
	return e
}

// WithPath adds the resource path to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewRequestError creates a new Error with method and path context.
func NewRequestError(op, method, path string, err error) *Error {
	return &Error{
		Op:     op,
		Method: method,
		Path:   path,
		Err:    err,
	}
}

// Sentinel errors for common request failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrUploadAborted indicates the upload notifier asked to stop sending the body
	ErrUploadAborted = errors.New("upload aborted")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3sig: invalid input")

	// ErrInvalidCredentials indicates missing or rejected credentials
	ErrInvalidCredentials = errors.New("s3sig: invalid credentials")

	// ErrRequestProcessed indicates a request was modified or sent after Process
	ErrRequestProcessed = errors.New("s3sig: request already processed")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3sig: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3sig: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3sig: access denied")

	// ErrConnection indicates the connection could not be established
	ErrConnection = errors.New("s3sig: connection error")

	// ErrMalformedResponse indicates the service response could not be read
	ErrMalformedResponse = errors.New("s3sig: malformed response")
)

// IsUploadAborted checks if an error was caused by an aborted upload.
func IsUploadAborted(err error) bool {
	return errors.Is(err, ErrUploadAborted)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and response errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
