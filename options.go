package s3sig

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

// WithLogger sets the logger used for debug records.
// Defaults to a logger that discards everything.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTimeout bounds dialing and the whole request/response exchange.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTLSConfig sets the TLS configuration. ServerName is always overridden
// with the credential host.
func WithTLSConfig(cfg *tls.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.TLSConfig = cfg
	}
}

// WithDialer replaces the dialer used to open connections.
func WithDialer(d s3types.Dialer) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Dialer = d
	}
}

// WithDisableSSL sends requests over plain TCP, port 80 by default.
// Only use this for local S3-compatible endpoints.
func WithDisableSSL(disableSSL bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.DisableSSL = disableSSL
	}
}

// WithErrorParser replaces the parser for application/xml error bodies.
func WithErrorParser(p s3types.ErrorParser) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ErrorParser = p
	}
}

// WithMetrics registers request metrics on reg.
func WithMetrics(reg prometheus.Registerer) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Metrics = reg
	}
}

// WithFilesystem sets the filesystem used by PutFile and GetFile.
// Defaults to the OS filesystem.
func WithFilesystem(fs billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = fs
	}
}

// WithConfig applies client options to a single request.
func WithConfig(opts ...s3types.Option) s3types.RequestOption {
	return func(c *s3types.RequestConfig) {
		for _, opt := range opts {
			opt(&c.ClientConfig)
		}
	}
}

// WithDate fixes the request date instead of using the current time.
func WithDate(t time.Time) s3types.RequestOption {
	return func(c *s3types.RequestConfig) {
		c.Date = t
	}
}

// WithContentType sets the Content-Type of an uploaded object.
func WithContentType(contentType string) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.ContentType = contentType
	}
}

// WithContentMD5 sets the base64 Content-MD5 of an uploaded object.
func WithContentMD5(md5 string) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.ContentMD5 = md5
	}
}

// WithMetadata adds user metadata; keys are sent as x-amz-meta-{key}.
func WithMetadata(metadata map[string]string) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithProgress reports upload progress to tracker.
func WithProgress(tracker s3types.ProgressTracker) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithUploadNotifier lets n abort the upload between chunks.
func WithUploadNotifier(n s3types.UploadNotifier) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.UploadNotifier = n
	}
}
