package errors

import (
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
)

// ResponseError is the structured form of a non-2xx S3 response.
// It is produced either from an XML error body or by wrapping the raw body text,
// in which case only StatusCode and Message are set.
type ResponseError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// Code is the S3 error code, empty when the body was not structured
	Code ErrorCode

	// Message is the human readable message, or the raw body
	Message string

	// Resource is the bucket or object the error relates to
	Resource string

	// RequestID is the x-amz-request-id of the failed request
	RequestID string

	// HostID is the x-amz-id-2 of the failed request
	HostID string
}

var _ smithy.APIError = (*ResponseError)(nil)

// Error implements the error interface.
func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("s3 response %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + string(e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request id %s)", e.RequestID)
	}
	return msg
}

// ErrorCode returns the S3 error code, or the HTTP status text when the
// response carried no structured body.
func (e *ResponseError) ErrorCode() string {
	if e.Code != "" {
		return string(e.Code)
	}
	return http.StatusText(e.StatusCode)
}

// ErrorMessage returns the error message.
func (e *ResponseError) ErrorMessage() string {
	return e.Message
}

// ErrorFault classifies the error as a client or server fault.
func (e *ResponseError) ErrorFault() smithy.ErrorFault {
	switch {
	case e.Code.serverFault(), e.StatusCode >= 500:
		return smithy.FaultServer
	case e.StatusCode >= 400:
		return smithy.FaultClient
	}
	return smithy.FaultUnknown
}

// Is maps well-known S3 codes onto the package sentinels so callers can use
// errors.Is without inspecting codes. Bodiless 404/403 responses (HEAD) map by status.
func (e *ResponseError) Is(target error) bool {
	switch e.Code {
	case CodeNoSuchKey:
		return target == ErrObjectNotFound
	case CodeNoSuchBucket:
		return target == ErrBucketNotFound
	case CodeAccessDenied:
		return target == ErrAccessDenied
	case CodeInvalidAccessKeyID, CodeSignatureDoesNotMatch:
		return target == ErrInvalidCredentials
	case "":
		switch e.StatusCode {
		case http.StatusNotFound:
			return target == ErrObjectNotFound
		case http.StatusForbidden:
			return target == ErrAccessDenied
		}
	}
	return false
}
