package s3sig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/classify"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/signing"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

const (
	// UserAgent is sent with every request.
	UserAgent = "s3sig/1.0"

	// DateFormat is the layout of the Date header, always in UTC.
	DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

	// DefaultContentType is signed and sent when no content type is set.
	DefaultContentType = "application/x-www-form-urlencoded"

	// MetadataPrefix is prepended to keys passed to AddMetadata.
	MetadataPrefix = "x-amz-meta-"
)

// Request is a single signed S3 request. It is built, optionally given
// metadata, a query string, a body and an upload notifier, and then
// processed exactly once. A Request is not safe for concurrent use.
type Request struct {
	method   s3types.Method
	path     string
	query    string
	date     string
	meta     *metadata.Multimap
	body     *s3types.Body
	notifier s3types.UploadNotifier

	cfg       s3types.RequestConfig
	logger    *slog.Logger
	processed bool
}

// NewRequest creates a request for path, which must start with "/" and may
// carry a query. The request date is captured here.
func NewRequest(method s3types.Method, path string, opts ...s3types.RequestOption) *Request {
	var cfg s3types.RequestConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	date := cfg.Date
	if date.IsZero() {
		date = time.Now()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Request{
		method: method,
		path:   path,
		date:   date.UTC().Format(DateFormat),
		meta:   metadata.New(),
		cfg:    cfg,
		logger: logger,
	}
}

// Method returns the request method.
func (r *Request) Method() s3types.Method { return r.method }

// Path returns the resource path as given to NewRequest.
func (r *Request) Path() string { return r.path }

// QueryString returns the query string set with SetQueryString.
func (r *Request) QueryString() string { return r.query }

// Date returns the formatted request date.
func (r *Request) Date() string { return r.date }

// SetQueryString sets the query appended to the path, without the leading "?".
func (r *Request) SetQueryString(query string) error {
	if r.processed {
		return errors.ErrRequestProcessed
	}
	r.query = strings.TrimPrefix(query, "?")
	return nil
}

// SetBody attaches a payload.
func (r *Request) SetBody(body s3types.Body) error {
	if r.processed {
		return errors.ErrRequestProcessed
	}
	if body.ContentLength < 0 {
		return errors.NewError("setBody", errors.ErrInvalidInput).WithMessage("negative content length")
	}
	if body.Reader == nil && body.ContentLength > 0 {
		return errors.NewError("setBody", errors.ErrInvalidInput).WithMessage("missing reader")
	}
	r.body = &body
	return nil
}

// AddMetadata adds a value to the x-amz-meta-{key} header. Repeated keys
// accumulate values in order.
func (r *Request) AddMetadata(key, value string) error {
	if r.processed {
		return errors.ErrRequestProcessed
	}
	r.meta.Add(MetadataPrefix+key, value)
	return nil
}

// SetUploadNotifier installs the notifier consulted after every body chunk.
func (r *Request) SetUploadNotifier(n s3types.UploadNotifier) error {
	if r.processed {
		return errors.ErrRequestProcessed
	}
	r.notifier = n
	return nil
}

// CanonicalString returns the string that is signed for this request.
func (r *Request) CanonicalString() string {
	return signing.CanonicalString(signing.Input{
		Method:      string(r.method),
		ContentMD5:  r.contentMD5(),
		ContentType: r.contentType(),
		Date:        r.date,
		Metadata:    r.meta,
		Path:        r.target(),
	})
}

func (r *Request) contentType() string {
	if r.body != nil && r.body.ContentType != "" {
		return r.body.ContentType
	}
	return DefaultContentType
}

func (r *Request) contentMD5() string {
	if r.body == nil {
		return ""
	}
	return r.body.ContentMD5
}

func (r *Request) contentLength() int64 {
	if r.body == nil {
		return 0
	}
	return r.body.ContentLength
}

// target is the request target: path plus query.
func (r *Request) target() string {
	if r.query == "" {
		return r.path
	}
	if strings.Contains(r.path, "?") {
		return r.path + "&" + r.query
	}
	return r.path + "?" + r.query
}

// Process signs and sends the request and reports the outcome to sink.
// It returns true iff the service answered 2xx.
//
// When closeConnection is true the connection is closed before Process
// returns, so a body passed to OnBody is only readable inside the callback.
// Otherwise the body owns the connection and closes it when it is closed or
// read to EOF.
//
// ctx bounds dialing and the whole exchange: cancelling it closes the
// connection and fails the call. A body handed to OnBody in transfer mode is
// no longer bound by ctx or the configured timeout.
func (r *Request) Process(ctx context.Context, cred s3types.Credential, sink s3types.ResultSink, closeConnection bool) bool {
	if sink == nil {
		sink = s3types.NopSink{}
	}

	var m *metrics.Metrics
	if r.cfg.Metrics != nil {
		m = metrics.New(r.cfg.Metrics)
	}

	start := time.Now()
	ok, err := r.process(ctx, cred, sink, closeConnection, m)
	elapsed := time.Since(start)

	if err != nil {
		r.logger.Debug("request failed", "method", r.method, "path", r.path, "error", err)
		outcome := metrics.OutcomeException
		if errors.IsUploadAborted(err) {
			outcome = metrics.OutcomeAborted
		}
		m.Observe(string(r.method), outcome, elapsed)
		sink.OnException(errors.NewError(string(r.method), err).WithPath(r.path))
		return false
	}

	outcome := metrics.OutcomeError
	if ok {
		outcome = metrics.OutcomeSuccess
	}
	m.Observe(string(r.method), outcome, elapsed)
	r.logger.Debug("request finished", "method", r.method, "path", r.path, "ok", ok, "duration", elapsed)
	return ok
}

func (r *Request) process(
	ctx context.Context,
	cred s3types.Credential,
	sink s3types.ResultSink,
	closeConnection bool,
	m *metrics.Metrics,
) (ok bool, err error) {
	if r.processed {
		return false, errors.ErrRequestProcessed
	}
	r.processed = true

	source := r.bodySource()
	defer func() { r.closeSource(source) }()

	if err := r.validate(cred); err != nil {
		return false, err
	}

	canonical := r.CanonicalString()
	signature := signing.Sign([]byte(cred.SecretAccessKey), canonical)

	head := &transport.RequestHead{
		Method: string(r.method),
		Target: r.target(),
		Fields: r.headerFields(cred, signature),
	}
	if err := head.Validate(); err != nil {
		return false, err
	}

	r.logger.Debug("sending request", "method", r.method, "host", cred.Host, "target", head.Target)

	conn, err := transport.Dial(ctx, transport.Config{
		Dialer:     r.cfg.Dialer,
		TLSConfig:  r.cfg.TLSConfig,
		DisableSSL: r.cfg.DisableSSL,
		Timeout:    r.cfg.Timeout,
		Logger:     r.logger,
	}, cred.Host)
	if err != nil {
		return false, err
	}

	transferred := false
	defer func() {
		if !transferred {
			_ = conn.Close()
		}
	}()
	stop := conn.CloseOnCancel(ctx)
	defer stop()

	if err := conn.WriteHead(head); err != nil {
		return false, interrupted(ctx, err)
	}

	if length := r.contentLength(); length > 0 {
		var notify func(int) bool
		if r.notifier != nil {
			notify = r.notifier.Uploaded
		}
		sent, err := conn.StreamBody(r.body.Reader, length, notify)
		m.Uploaded(string(r.method), sent)
		if err != nil {
			return false, interrupted(ctx, err)
		}
		r.logger.Debug("content sent", "bytes", sent)
	}
	r.closeSource(source)
	source = nil

	resp, err := conn.ReadResponse(string(r.method))
	if err != nil {
		if ctx.Err() != nil {
			return false, interrupted(ctx, err)
		}
		return false, fmt.Errorf("%w: %w", errors.ErrMalformedResponse, err)
	}

	opts := classify.Options{Parser: r.cfg.ErrorParser}
	if !closeConnection {
		opts.WrapBody = conn.OwnedBody
	}
	delivered, err := classify.Classify(resp, r.method, opts, sink)
	if err != nil {
		return false, interrupted(ctx, err)
	}
	transferred = delivered && !closeConnection
	if transferred {
		stop()
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// interrupted attaches the context error to err once ctx is done.
func interrupted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

func (r *Request) validate(cred s3types.Credential) error {
	if !r.method.Valid() {
		return errors.NewError("validate", errors.ErrInvalidInput).WithMessage("unsupported method " + strconv.Quote(string(r.method)))
	}
	if !strings.HasPrefix(r.path, "/") {
		return errors.NewError("validate", errors.ErrInvalidInput).WithMessage("path must start with /")
	}
	return cred.Validate()
}

// headerFields lists the request headers in wire order.
func (r *Request) headerFields(cred s3types.Credential, signature string) []transport.Field {
	fields := []transport.Field{
		{Name: "Host", Value: cred.Host},
		{Name: "Authorization", Value: signing.Authorization(cred.AccessKeyID, signature)},
		{Name: "Date", Value: r.date},
		{Name: "User-Agent", Value: UserAgent},
	}
	if md5 := r.contentMD5(); md5 != "" {
		fields = append(fields, transport.Field{Name: "Content-MD5", Value: md5})
	}
	fields = append(fields,
		transport.Field{Name: "Content-Type", Value: r.contentType()},
		transport.Field{Name: "Content-Length", Value: strconv.FormatInt(r.contentLength(), 10)},
	)
	for _, key := range r.meta.Keys() {
		fields = append(fields, transport.Field{Name: key, Value: r.meta.Joined(key)})
	}
	return fields
}

func (r *Request) bodySource() io.Reader {
	if r.body == nil {
		return nil
	}
	return r.body.Reader
}

// closeSource closes the body reader if it is closable. Errors are logged only.
func (r *Request) closeSource(src io.Reader) {
	c, ok := src.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		r.logger.Debug("closing request body", "error", err)
	}
}
