// Package s3types provides shared type definitions for the s3sig module.
package s3types

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
)

// Method is the HTTP method of a signed request.
type Method string

// Supported request methods
const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodHead   Method = "HEAD"
)

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPut, MethodDelete, MethodHead:
		return true
	}
	return false
}

// Credential holds the keys used to sign requests and the endpoint they are sent to.
type Credential struct {
	// AccessKeyID is the public key identifier placed in the Authorization header
	AccessKeyID string

	// SecretAccessKey is the HMAC key; its UTF-8 bytes are used as-is
	SecretAccessKey string

	// Host is the endpoint host, optionally with a port (e.g. "s3.amazonaws.com")
	Host string
}

// Validate checks that the credential can sign and address a request.
func (c Credential) Validate() error {
	switch {
	case c.AccessKeyID == "":
		return errors.NewError("credential", errors.ErrInvalidCredentials).WithMessage("access key id is empty")
	case c.SecretAccessKey == "":
		return errors.NewError("credential", errors.ErrInvalidCredentials).WithMessage("secret access key is empty")
	case strings.TrimSpace(c.Host) == "":
		return errors.NewError("credential", errors.ErrInvalidInput).WithMessage("host is empty")
	}
	return nil
}

// String hides the secret.
func (c Credential) String() string {
	return "Credential{AccessKeyID: " + c.AccessKeyID + ", Host: " + c.Host + "}"
}

// Body describes a request payload.
// ContentLength must equal the number of bytes Reader yields.
type Body struct {
	Reader        io.Reader
	ContentMD5    string
	ContentType   string
	ContentLength int64
}

// UploadNotifier is told how many bytes were sent after every body chunk.
// Returning false aborts the upload.
type UploadNotifier interface {
	Uploaded(n int) bool
}

// UploadNotifierFunc adapts a function to UploadNotifier.
type UploadNotifierFunc func(n int) bool

// Uploaded calls f(n).
func (f UploadNotifierFunc) Uploaded(n int) bool {
	return f(n)
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads and downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// TrackProgress returns an UploadNotifier that reports cumulative progress to
// tracker. It never aborts. Complete and Error remain the caller's job.
func TrackProgress(total int64, tracker ProgressTracker) UploadNotifier {
	var sent int64
	return UploadNotifierFunc(func(n int) bool {
		sent += int64(n)
		tracker.Update(sent, total)
		return true
	})
}

// ResultSink receives the outcome of a processed request.
//
// For every call exactly one of OnSuccess, OnError or OnException is invoked.
// OnHeader and OnMetadata may be called any number of times before it.
// OnBody is called at most once, after OnSuccess, and never for HEAD or a
// 204/205 response.
type ResultSink interface {
	OnSuccess(code int, requestID, id2 string)
	OnError(code int, res *errors.ResponseError, requestID, id2 string)
	OnException(err error)
	OnHeader(key, value string)
	OnMetadata(key, value string)
	OnBody(body io.ReadCloser)
}

// NopSink implements every ResultSink method as a no-op.
// Embed it to implement only the callbacks of interest.
type NopSink struct{}

func (NopSink) OnSuccess(int, string, string)                       {}
func (NopSink) OnError(int, *errors.ResponseError, string, string) {}
func (NopSink) OnException(error)                                  {}
func (NopSink) OnHeader(string, string)                            {}
func (NopSink) OnMetadata(string, string)                          {}
func (NopSink) OnBody(io.ReadCloser)                               {}

// ErrorParser turns an XML error body into a ResponseError.
type ErrorParser func(body []byte) (*errors.ResponseError, error)

// Dialer opens the network connection for a request.
// *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ObjectMetadata contains detailed metadata about an S3 object.
type ObjectMetadata struct {
	// ContentType is the MIME type of the object
	ContentType string

	// ContentLength is the size of the object in bytes
	ContentLength int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// RequestID is the x-amz-request-id of the response
	RequestID string

	// Metadata contains user-defined metadata, keyed by lower-cased name
	Metadata map[string][]string
}

// PutResult contains the result of a put operation.
type PutResult struct {
	// Key is the S3 object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// RequestID is the x-amz-request-id of the response
	RequestID string

	// Duration is how long the upload took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration shared by requests and the client.
type ClientConfig struct {
	Logger      *slog.Logger
	Timeout     time.Duration
	TLSConfig   *tls.Config
	Dialer      Dialer
	DisableSSL  bool
	ErrorParser ErrorParser
	Metrics     prometheus.Registerer
	Filesystem  billy.Filesystem // Filesystem used by PutFile and GetFile
}

// RequestConfig holds configuration for a single request.
type RequestConfig struct {
	ClientConfig

	// Date overrides the request date; zero means now
	Date time.Time
}

// PutOptionConfig holds configuration for put operations via functional options.
type PutOptionConfig struct {
	ContentType     string
	ContentMD5      string
	Metadata        map[string]string
	ProgressTracker ProgressTracker
	UploadNotifier  UploadNotifier
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// RequestOption is a functional option for configuring a single request.
	RequestOption func(*RequestConfig)
	// PutOption is a functional option for configuring put operations.
	PutOption func(*PutOptionConfig)
)
