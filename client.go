package s3sig

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // Content-MD5 is defined as MD5
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

const (
	aclQuery        = "acl"
	aclContentType  = "application/xml"
	maxBufferedBody = 1 << 20
)

// Client runs common object and bucket operations as single signed requests.
// Each call builds one Request; there are no retries and no pooled connections.
// A Client is safe for concurrent use.
type Client struct {
	cred   s3types.Credential
	cfg    s3types.ClientConfig
	fs     billy.Filesystem
	logger *slog.Logger
}

// New creates a client that signs with cred.
//
// Example:
//
//	client, err := s3sig.New(cred,
//	    s3sig.WithTimeout(30*time.Second),
//	    s3sig.WithLogger(slog.Default()),
//	)
func New(cred s3types.Credential, opts ...s3types.Option) (*Client, error) {
	if err := cred.Validate(); err != nil {
		return nil, errors.NewError("client initialization", err)
	}

	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Default to OS filesystem rooted at /
	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = osfs.New("/")
	}

	return &Client{
		cred:   cred,
		cfg:    cfg,
		fs:     filesystem,
		logger: cfg.Logger,
	}, nil
}

func defaultClientConfig() s3types.ClientConfig {
	return s3types.ClientConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// Credential returns the credential the client signs with.
func (c *Client) Credential() s3types.Credential {
	return c.cred
}

// NewRequest creates a Request carrying the client configuration.
func (c *Client) NewRequest(method s3types.Method, path string) *Request {
	return NewRequest(method, path, func(rc *s3types.RequestConfig) {
		rc.ClientConfig = c.cfg
	})
}

// HeadObject returns the metadata of an object without its content.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*s3types.ObjectMetadata, error) {
	if err := validateObject(bucket, key); err != nil {
		return nil, err
	}

	sink, err := c.do(ctx, "headObject", c.NewRequest(s3types.MethodHead, objectPath(bucket, key)), true)
	if err != nil {
		return nil, err
	}
	return sink.objectMetadata(), nil
}

// GetObject returns the content of an object. The returned reader owns the
// connection and must be closed.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, *s3types.ObjectMetadata, error) {
	if err := validateObject(bucket, key); err != nil {
		return nil, nil, err
	}

	req := c.NewRequest(s3types.MethodGet, objectPath(bucket, key))
	sink := &collectSink{keepBody: true}
	if err := c.run(ctx, "getObject", req, sink, false); err != nil {
		return nil, nil, err
	}
	if sink.body == nil {
		return nil, nil, errors.NewRequestError("getObject", string(req.Method()), req.Path(), errors.ErrMalformedResponse)
	}
	return sink.body, sink.objectMetadata(), nil
}

// PutObject uploads size bytes from r.
//
// Without WithContentType the type is guessed from the key extension. Without
// WithContentMD5 the digest is computed when r is an io.ReadSeeker.
func (c *Client) PutObject(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	size int64,
	opts ...s3types.PutOption,
) (*s3types.PutResult, error) {
	if err := validateObject(bucket, key); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NewError("putObject", errors.ErrInvalidInput).
			WithPath(objectPath(bucket, key)).
			WithMessage("reader cannot be nil")
	}

	config := &s3types.PutOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if err := validation.ValidateMetadata(config.Metadata); err != nil {
		return nil, err
	}

	if config.ContentType == "" {
		config.ContentType = mime.TypeByExtension(path.Ext(key))
	}
	if config.ContentMD5 == "" {
		if rs, ok := r.(io.ReadSeeker); ok {
			sum, err := contentMD5(rs, size)
			if err != nil {
				return nil, errors.NewError("putObject", err).WithPath(objectPath(bucket, key))
			}
			config.ContentMD5 = sum
		}
	}

	req := c.NewRequest(s3types.MethodPut, objectPath(bucket, key))
	for _, k := range sortedKeys(config.Metadata) {
		_ = req.AddMetadata(k, config.Metadata[k])
	}
	if err := req.SetBody(s3types.Body{
		Reader:        r,
		ContentMD5:    config.ContentMD5,
		ContentType:   config.ContentType,
		ContentLength: size,
	}); err != nil {
		return nil, err
	}
	if n := uploadNotifier(config, size); n != nil {
		_ = req.SetUploadNotifier(n)
	}

	start := time.Now()
	sink, err := c.do(ctx, "putObject", req, true)
	if err != nil {
		if config.ProgressTracker != nil {
			config.ProgressTracker.Error(err)
		}
		return nil, err
	}
	if config.ProgressTracker != nil {
		config.ProgressTracker.Complete()
	}

	return &s3types.PutResult{
		Key:       key,
		Size:      size,
		ETag:      sink.header.Get("ETag"),
		RequestID: sink.requestID,
		Duration:  time.Since(start),
	}, nil
}

// PutBytes uploads data.
func (c *Client) PutBytes(ctx context.Context, bucket, key string, data []byte, opts ...s3types.PutOption) (*s3types.PutResult, error) {
	return c.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts...)
}

// PutFile uploads a file from the client filesystem. The content type is
// detected from the file content unless WithContentType is given.
func (c *Client) PutFile(
	ctx context.Context,
	bucket, key, filename string,
	opts ...s3types.PutOption,
) (*s3types.PutResult, error) {
	info, err := c.fs.Stat(filename)
	if err != nil {
		return nil, errors.NewError("putFile", err).WithPath(filename)
	}
	if info.IsDir() {
		return nil, errors.NewError("putFile", errors.ErrInvalidInput).
			WithPath(filename).
			WithMessage("path is a directory")
	}

	file, err := c.fs.Open(filename)
	if err != nil {
		return nil, errors.NewError("putFile", err).WithPath(filename)
	}
	defer file.Close()

	detected, err := c.detectContentType(file, filename)
	if err != nil {
		return nil, errors.NewError("putFile", err).WithPath(filename)
	}

	opts = append([]s3types.PutOption{WithContentType(detected)}, opts...)
	return c.PutObject(ctx, bucket, key, file, info.Size(), opts...)
}

// detectContentType sniffs the start of file with mimetype, falling back to
// the extension, and rewinds the file.
func (c *Client) detectContentType(file billy.File, filename string) (string, error) {
	contentType := ""
	if mt, err := mimetype.DetectReader(file); err == nil && mt != nil {
		contentType = mt.String()
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// mimetype falls back to octet-stream when it cannot tell
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(path.Ext(filename)); byExt != "" {
			return byExt, nil
		}
	}
	return contentType, nil
}

// GetFile downloads an object into the client filesystem.
func (c *Client) GetFile(ctx context.Context, bucket, key, filename string) (*s3types.ObjectMetadata, error) {
	body, meta, err := c.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if dir := path.Dir(filename); dir != "." && dir != "/" {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewError("getFile", err).WithPath(filename)
		}
	}

	file, err := c.fs.Create(filename)
	if err != nil {
		return nil, errors.NewError("getFile", err).WithPath(filename)
	}

	n, err := io.Copy(file, body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.NewError("getFile", err).WithPath(filename)
	}
	c.logger.Debug("object downloaded", "bucket", bucket, "key", key, "file", filename, "bytes", n)
	return meta, nil
}

// DeleteObject removes an object.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := validateObject(bucket, key); err != nil {
		return err
	}
	_, err := c.do(ctx, "deleteObject", c.NewRequest(s3types.MethodDelete, objectPath(bucket, key)), true)
	return err
}

// GetACL returns the access control policy document of an object, or of the
// bucket when key is empty.
func (c *Client) GetACL(ctx context.Context, bucket, key string) ([]byte, error) {
	p, err := aclPath(bucket, key)
	if err != nil {
		return nil, err
	}

	req := c.NewRequest(s3types.MethodGet, p)
	_ = req.SetQueryString(aclQuery)
	sink, err := c.do(ctx, "getACL", req, true)
	if err != nil {
		return nil, err
	}
	return sink.data, nil
}

// PutACL replaces the access control policy of an object, or of the bucket
// when key is empty.
func (c *Client) PutACL(ctx context.Context, bucket, key string, acl []byte) error {
	p, err := aclPath(bucket, key)
	if err != nil {
		return err
	}

	req := c.NewRequest(s3types.MethodPut, p)
	_ = req.SetQueryString(aclQuery)
	if err := req.SetBody(s3types.Body{
		Reader:        bytes.NewReader(acl),
		ContentType:   aclContentType,
		ContentLength: int64(len(acl)),
	}); err != nil {
		return err
	}
	_, err = c.do(ctx, "putACL", req, true)
	return err
}

// CreateBucket creates a bucket in the default region of the endpoint.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	_, err := c.do(ctx, "createBucket", c.NewRequest(s3types.MethodPut, "/"+bucket), true)
	return err
}

// DeleteBucket removes an empty bucket.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	_, err := c.do(ctx, "deleteBucket", c.NewRequest(s3types.MethodDelete, "/"+bucket), true)
	return err
}

// do processes req with the connection closed before return and the body,
// if any, buffered.
func (c *Client) do(ctx context.Context, op string, req *Request, closeConnection bool) (*collectSink, error) {
	sink := &collectSink{}
	if err := c.run(ctx, op, req, sink, closeConnection); err != nil {
		return nil, err
	}
	if sink.bodyErr != nil {
		return nil, errors.NewRequestError(op, string(req.Method()), req.Path(), sink.bodyErr)
	}
	return sink, nil
}

func (c *Client) run(ctx context.Context, op string, req *Request, sink *collectSink, closeConnection bool) error {
	req.Process(ctx, c.cred, sink, closeConnection)
	switch {
	case sink.exception != nil:
		return errors.NewError(op, sink.exception)
	case sink.respErr != nil:
		return errors.NewRequestError(op, string(req.Method()), req.Path(), sink.respErr)
	}
	return nil
}

// collectSink gathers the callbacks of one request.
type collectSink struct {
	keepBody bool

	header    http.Header
	meta      map[string][]string
	requestID string
	respErr   *errors.ResponseError
	exception error

	data    []byte
	body    io.ReadCloser
	bodyErr error
}

func (s *collectSink) OnSuccess(_ int, requestID, _ string) {
	s.requestID = requestID
}

func (s *collectSink) OnError(_ int, res *errors.ResponseError, requestID, _ string) {
	s.requestID = requestID
	s.respErr = res
}

func (s *collectSink) OnException(err error) {
	s.exception = err
}

func (s *collectSink) OnHeader(key, value string) {
	if s.header == nil {
		s.header = http.Header{}
	}
	s.header.Add(key, value)
}

func (s *collectSink) OnMetadata(key, value string) {
	if s.meta == nil {
		s.meta = make(map[string][]string)
	}
	s.meta[key] = append(s.meta[key], value)
}

func (s *collectSink) OnBody(body io.ReadCloser) {
	if s.keepBody {
		s.body = body
		return
	}
	s.data, s.bodyErr = io.ReadAll(io.LimitReader(body, maxBufferedBody+1))
	if s.bodyErr == nil && len(s.data) > maxBufferedBody {
		s.data = nil
		s.bodyErr = fmt.Errorf("%w: response body exceeds %d bytes", errors.ErrMalformedResponse, maxBufferedBody)
	}
}

func (s *collectSink) objectMetadata() *s3types.ObjectMetadata {
	meta := &s3types.ObjectMetadata{
		ContentType: s.header.Get("Content-Type"),
		ETag:        s.header.Get("ETag"),
		RequestID:   s.requestID,
		Metadata:    s.meta,
	}
	if n, err := strconv.ParseInt(s.header.Get("Content-Length"), 10, 64); err == nil {
		meta.ContentLength = n
	}
	if t, err := http.ParseTime(s.header.Get("Last-Modified")); err == nil {
		meta.LastModified = t
	}
	return meta
}

func validateObject(bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	return validation.ValidateObjectKey(key)
}

func aclPath(bucket, key string) (string, error) {
	if key == "" {
		if err := validation.ValidateBucketName(bucket); err != nil {
			return "", err
		}
		return "/" + bucket, nil
	}
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	return objectPath(bucket, key), nil
}

// objectPath builds the path-style resource for key, escaping each segment.
func objectPath(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + bucket + "/" + strings.Join(segments, "/")
}

func uploadNotifier(config *s3types.PutOptionConfig, size int64) s3types.UploadNotifier {
	var progress s3types.UploadNotifier
	if config.ProgressTracker != nil {
		progress = s3types.TrackProgress(size, config.ProgressTracker)
	}

	switch {
	case progress == nil:
		return config.UploadNotifier
	case config.UploadNotifier == nil:
		return progress
	}
	user := config.UploadNotifier
	return s3types.UploadNotifierFunc(func(n int) bool {
		progress.Uploaded(n)
		return user.Uploaded(n)
	})
}

// contentMD5 hashes the next size bytes of rs and rewinds it.
func contentMD5(rs io.ReadSeeker, size int64) (string, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", err
	}
	h := md5.New() //nolint:gosec
	if _, err := io.CopyN(h, rs, size); err != nil {
		return "", fmt.Errorf("hashing body: %w", err)
	}
	if _, err := rs.Seek(pos, io.SeekStart); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
