package s3sig

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

var testTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

const testDate = "Wed, 01 Jan 2025 00:00:00 GMT"

func testCredential(host string) s3types.Credential {
	return s3types.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret", Host: host}
}

// plainRequest builds a request with a fixed date that talks plain TCP.
func plainRequest(method s3types.Method, path string, opts ...s3types.Option) *Request {
	opts = append([]s3types.Option{WithDisableSSL(true)}, opts...)
	return NewRequest(method, path, WithDate(testTime), WithConfig(opts...))
}

func okResponder(body string, headers ...string) testutil.Responder {
	return func(*testutil.CapturedRequest) string {
		return testutil.Response(http.StatusOK, body, headers...)
	}
}

func TestNewRequest_Defaults(t *testing.T) {
	before := time.Now().UTC().Truncate(time.Second)
	req := NewRequest(s3types.MethodGet, "/bucket/key")
	after := time.Now().UTC()

	assert.Equal(t, s3types.MethodGet, req.Method())
	assert.Equal(t, "/bucket/key", req.Path())
	assert.Empty(t, req.QueryString())

	date, err := time.Parse(DateFormat, req.Date())
	require.NoError(t, err)
	assert.False(t, date.Before(before))
	assert.False(t, date.After(after))
}

func TestRequest_CanonicalString(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, r *Request)
		path  string
		want  string
	}{
		{
			name: "default content type",
			path: "/bucket/key",
			want: "GET\n\napplication/x-www-form-urlencoded\n" + testDate + "\n/bucket/key",
		},
		{
			name: "body and metadata",
			path: "/bucket/key",
			setup: func(t *testing.T, r *Request) {
				require.NoError(t, r.SetBody(s3types.Body{
					Reader:        strings.NewReader("hello"),
					ContentMD5:    "XUFAKrxLKna5cZ2REBfFkg==",
					ContentType:   "text/plain",
					ContentLength: 5,
				}))
				require.NoError(t, r.AddMetadata("Tags", "a"))
				require.NoError(t, r.AddMetadata("Tags", "b\n"))
				require.NoError(t, r.AddMetadata("owner", " alice "))
			},
			want: "GET\nXUFAKrxLKna5cZ2REBfFkg==\ntext/plain\n" + testDate + "\n" +
				"x-amz-meta-owner:alice\nx-amz-meta-tags:a,b\n/bucket/key",
		},
		{
			name: "acl query is signed",
			path: "/bucket/key",
			setup: func(t *testing.T, r *Request) {
				require.NoError(t, r.SetQueryString("?acl"))
			},
			want: "GET\n\napplication/x-www-form-urlencoded\n" + testDate + "\n/bucket/key?acl",
		},
		{
			name: "other query is not signed",
			path: "/bucket/key",
			setup: func(t *testing.T, r *Request) {
				require.NoError(t, r.SetQueryString("versionId=3"))
			},
			want: "GET\n\napplication/x-www-form-urlencoded\n" + testDate + "\n/bucket/key",
		},
		{
			name: "query in path and query string",
			path: "/bucket/key?versionId=3",
			setup: func(t *testing.T, r *Request) {
				require.NoError(t, r.SetQueryString("torrent"))
			},
			want: "GET\n\napplication/x-www-form-urlencoded\n" + testDate + "\n/bucket/key?torrent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(s3types.MethodGet, tt.path, WithDate(testTime))
			if tt.setup != nil {
				tt.setup(t, req)
			}
			assert.Equal(t, tt.want, req.CanonicalString())
		})
	}
}

func TestRequest_SetBody_Invalid(t *testing.T) {
	req := NewRequest(s3types.MethodPut, "/bucket/key")

	err := req.SetBody(s3types.Body{ContentLength: -1})
	assert.True(t, errors.IsInvalidInput(err))

	err = req.SetBody(s3types.Body{ContentLength: 10})
	assert.True(t, errors.IsInvalidInput(err))

	assert.NoError(t, req.SetBody(s3types.Body{}))
}

func TestProcess_KnownAuthorization(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder("data"))
	sink := &testutil.RecordingSink{}

	ok := plainRequest(s3types.MethodGet, "/bucket/key").Process(context.Background(), testCredential(srv.Host), sink, true)
	require.True(t, ok, "exception: %v", sink.Exception)

	got := srv.Last()
	require.NotNil(t, got)
	assert.Equal(t, "GET /bucket/key HTTP/1.1", got.RequestLine)
	assert.Equal(t, "AWS AKID:DhKO3YeGD5Yoqdjx7EZshBAnQwo=", got.Header("Authorization"))
	assert.Equal(t, testDate, got.Header("Date"))
	assert.Equal(t, srv.Host, got.Header("Host"))
	assert.Equal(t, UserAgent, got.Header("User-Agent"))
	assert.Equal(t, DefaultContentType, got.Header("Content-Type"))
	assert.Equal(t, "0", got.Header("Content-Length"))
	assert.Empty(t, got.Header("Content-MD5"))

	sink.AssertCallbackOrder(t)
	assert.Equal(t, []byte("data"), sink.Body)
}

func TestProcess_HeaderOrderAndCase(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder(""))

	req := plainRequest(s3types.MethodPut, "/bucket/key")
	require.NoError(t, req.SetBody(s3types.Body{
		Reader:        strings.NewReader("hello"),
		ContentMD5:    testutil.ContentMD5([]byte("hello")),
		ContentType:   "text/plain",
		ContentLength: 5,
	}))
	require.NoError(t, req.AddMetadata("Tags", "a\n"))
	require.NoError(t, req.AddMetadata("Tags", "b "))
	require.NoError(t, req.AddMetadata("owner", "alice"))

	sink := &testutil.RecordingSink{}
	require.True(t, req.Process(context.Background(), testCredential(srv.Host), sink, true), "exception: %v", sink.Exception)

	got := srv.Last()
	require.NotNil(t, got)
	assert.Equal(t, "PUT", got.Method())
	assert.Equal(t, []string{
		"Host", "Authorization", "Date", "User-Agent",
		"Content-MD5", "Content-Type", "Content-Length",
		"x-amz-meta-Tags", "x-amz-meta-owner",
	}, got.HeaderNames())
	assert.Equal(t, "a,b", got.Header("x-amz-meta-Tags"))
	assert.Equal(t, "5", got.Header("Content-Length"))
	assert.Equal(t, []byte("hello"), got.Body)
}

func TestProcess_QueryTarget(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder("<AccessControlPolicy/>"))

	req := plainRequest(s3types.MethodGet, "/bucket/key?versionId=3")
	require.NoError(t, req.SetQueryString("acl"))
	require.True(t, req.Process(context.Background(), testCredential(srv.Host), nil, true))

	assert.Equal(t, "/bucket/key?versionId=3&acl", srv.Last().Target())
}

func TestProcess_UploadChunks(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder("", "ETag", `"abc"`))
	data := testutil.GenerateRandomData(2500)

	var calls []int
	req := plainRequest(s3types.MethodPut, "/bucket/key")
	require.NoError(t, req.SetBody(s3types.Body{Reader: strings.NewReader(string(data)), ContentLength: 2500}))
	require.NoError(t, req.SetUploadNotifier(s3types.UploadNotifierFunc(func(n int) bool {
		calls = append(calls, n)
		return true
	})))

	sink := &testutil.RecordingSink{}
	require.True(t, req.Process(context.Background(), testCredential(srv.Host), sink, true), "exception: %v", sink.Exception)

	assert.Equal(t, []int{1024, 1024, 452}, calls)
	assert.Equal(t, data, srv.Last().Body)
	assert.Equal(t, `"abc"`, sink.Header("Etag"))
}

func TestProcess_UploadAborted(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder(""))
	data := testutil.GenerateRandomData(2500)

	calls := 0
	req := plainRequest(s3types.MethodPut, "/bucket/key")
	require.NoError(t, req.SetBody(s3types.Body{Reader: strings.NewReader(string(data)), ContentLength: 2500}))
	require.NoError(t, req.SetUploadNotifier(s3types.UploadNotifierFunc(func(int) bool {
		calls++
		return calls < 2
	})))

	sink := &testutil.RecordingSink{}
	ok := req.Process(context.Background(), testCredential(srv.Host), sink, true)

	assert.False(t, ok)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{testutil.EventException}, sink.Events)
	assert.True(t, errors.IsUploadAborted(sink.Exception))

	var reqErr *errors.Error
	require.ErrorAs(t, sink.Exception, &reqErr)
	assert.Equal(t, "PUT", reqErr.Op)
	assert.Equal(t, "/bucket/key", reqErr.Path)

	assert.Eventually(t, func() bool {
		last := srv.Last()
		return last != nil && last.BodyErr != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, srv.Last().Body, 2048)
}

func TestProcess_ClosesBodySource(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder(""))

	src := &closeRecorder{Reader: strings.NewReader("hello")}
	req := plainRequest(s3types.MethodPut, "/bucket/key")
	require.NoError(t, req.SetBody(s3types.Body{Reader: src, ContentLength: 5}))

	require.True(t, req.Process(context.Background(), testCredential(srv.Host), nil, true))
	assert.Equal(t, 1, src.closes)
}

type closeRecorder struct {
	io.Reader
	closes int
}

func (c *closeRecorder) Close() error {
	c.closes++
	return nil
}

func TestProcess_Responses(t *testing.T) {
	tests := []struct {
		name     string
		method   s3types.Method
		response string
		wantOK   bool
		validate func(t *testing.T, sink *testutil.RecordingSink)
	}{
		{
			name:   "head has no body",
			method: s3types.MethodHead,
			response: testutil.Response(http.StatusOK, "", "Content-Length", "42",
				"x-amz-meta-Owner", "alice", "x-amz-request-id", "REQ1"),
			wantOK: true,
			validate: func(t *testing.T, sink *testutil.RecordingSink) {
				assert.Zero(t, sink.Count(testutil.EventBody))
				assert.Equal(t, []testutil.Header{{Key: "owner", Value: "alice"}}, sink.Metadata)
				assert.Equal(t, "42", sink.Header("Content-Length"))
				assert.Equal(t, "REQ1", sink.RequestID)
			},
		},
		{
			name:     "delete no content",
			method:   s3types.MethodDelete,
			response: testutil.Response(http.StatusNoContent, "", "Content-Length", "0"),
			wantOK:   true,
			validate: func(t *testing.T, sink *testutil.RecordingSink) {
				assert.Equal(t, http.StatusNoContent, sink.Code)
				assert.Zero(t, sink.Count(testutil.EventBody))
			},
		},
		{
			name:   "structured not found",
			method: s3types.MethodGet,
			response: testutil.Response(http.StatusNotFound,
				testutil.XMLError("NoSuchKey", "The specified key does not exist.", "/bucket/key", "REQ2"),
				"Content-Type", "application/xml", "x-amz-request-id", "REQ2", "x-amz-id-2", "HOST2"),
			validate: func(t *testing.T, sink *testutil.RecordingSink) {
				require.NotNil(t, sink.Err)
				assert.Equal(t, http.StatusNotFound, sink.Code)
				assert.Equal(t, errors.CodeNoSuchKey, sink.Err.Code)
				assert.Equal(t, "The specified key does not exist.", sink.Err.Message)
				assert.Equal(t, "/bucket/key", sink.Err.Resource)
				assert.Equal(t, "HOST2", sink.Err.HostID)
				assert.Equal(t, "REQ2", sink.RequestID)
				assert.Equal(t, "HOST2", sink.ID2)
				assert.ErrorIs(t, sink.Err, errors.ErrObjectNotFound)
				assert.Zero(t, sink.Count(testutil.EventBody))
			},
		},
		{
			name:     "server error with empty body",
			method:   s3types.MethodGet,
			response: testutil.Response(http.StatusInternalServerError, ""),
			validate: func(t *testing.T, sink *testutil.RecordingSink) {
				require.NotNil(t, sink.Err)
				assert.Equal(t, http.StatusInternalServerError, sink.Err.StatusCode)
				assert.Empty(t, sink.Err.Message)
				assert.Empty(t, sink.Err.Code)
			},
		},
		{
			name:     "plain text error body",
			method:   s3types.MethodPut,
			response: testutil.Response(http.StatusBadRequest, "bad things", "Content-Type", "text/plain"),
			validate: func(t *testing.T, sink *testutil.RecordingSink) {
				require.NotNil(t, sink.Err)
				assert.Equal(t, "bad things", sink.Err.Message)
			},
		},
		{
			name:     "malformed status line",
			method:   s3types.MethodGet,
			response: "garbage\r\n\r\n",
			validate: func(t *testing.T, sink *testutil.RecordingSink) {
				assert.Equal(t, []string{testutil.EventException}, sink.Events)
				assert.ErrorIs(t, sink.Exception, errors.ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewRawServer(t, func(*testutil.CapturedRequest) string { return tt.response })
			sink := &testutil.RecordingSink{}

			ok := plainRequest(tt.method, "/bucket/key").Process(context.Background(), testCredential(srv.Host), sink, true)

			assert.Equal(t, tt.wantOK, ok)
			sink.AssertCallbackOrder(t)
			tt.validate(t, sink)
		})
	}
}

func TestProcess_OnlyOnce(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder(""))
	cred := testCredential(srv.Host)
	req := plainRequest(s3types.MethodGet, "/bucket/key")

	require.True(t, req.Process(context.Background(), cred, nil, true))

	sink := &testutil.RecordingSink{}
	assert.False(t, req.Process(context.Background(), cred, sink, true))
	assert.Equal(t, []string{testutil.EventException}, sink.Events)
	assert.ErrorIs(t, sink.Exception, errors.ErrRequestProcessed)
	assert.Len(t, srv.Requests(), 1)

	assert.ErrorIs(t, req.SetQueryString("acl"), errors.ErrRequestProcessed)
	assert.ErrorIs(t, req.SetBody(s3types.Body{}), errors.ErrRequestProcessed)
	assert.ErrorIs(t, req.AddMetadata("k", "v"), errors.ErrRequestProcessed)
	assert.ErrorIs(t, req.SetUploadNotifier(nil), errors.ErrRequestProcessed)
}

func TestProcess_InvalidRequest(t *testing.T) {
	tests := []struct {
		name    string
		method  s3types.Method
		path    string
		cred    s3types.Credential
		wantErr error
	}{
		{
			name:    "unsupported method",
			method:  "POST",
			path:    "/bucket/key",
			cred:    testCredential("127.0.0.1:1"),
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "relative path",
			method:  s3types.MethodGet,
			path:    "bucket/key",
			cred:    testCredential("127.0.0.1:1"),
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "missing secret",
			method:  s3types.MethodGet,
			path:    "/bucket/key",
			cred:    s3types.Credential{AccessKeyID: "AKID", Host: "127.0.0.1:1"},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:    "missing host",
			method:  s3types.MethodGet,
			path:    "/bucket/key",
			cred:    s3types.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"},
			wantErr: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := &testutil.CountingDialer{}
			sink := &testutil.RecordingSink{}

			ok := plainRequest(tt.method, tt.path, WithDialer(dialer)).Process(context.Background(), tt.cred, sink, true)

			assert.False(t, ok)
			assert.Equal(t, []string{testutil.EventException}, sink.Events)
			assert.ErrorIs(t, sink.Exception, tt.wantErr)
			assert.Empty(t, dialer.Conns())
		})
	}
}

func TestProcess_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host := ln.Addr().String()
	require.NoError(t, ln.Close())

	sink := &testutil.RecordingSink{}
	ok := plainRequest(s3types.MethodGet, "/bucket/key").Process(context.Background(), testCredential(host), sink, true)

	assert.False(t, ok)
	assert.Equal(t, []string{testutil.EventException}, sink.Events)
	assert.ErrorIs(t, sink.Exception, errors.ErrConnection)
}

func TestProcess_ConnectionLifetime(t *testing.T) {
	t.Run("body owns connection", func(t *testing.T) {
		srv := testutil.NewRawServer(t, okResponder("object data"))
		dialer := &testutil.CountingDialer{}
		sink := &testutil.RecordingSink{KeepBody: true}

		ok := plainRequest(s3types.MethodGet, "/bucket/key", WithDialer(dialer)).
			Process(context.Background(), testCredential(srv.Host), sink, false)
		require.True(t, ok, "exception: %v", sink.Exception)
		require.Len(t, dialer.Conns(), 1)
		conn := dialer.Conns()[0]
		assert.Zero(t, conn.Closes())

		require.NotNil(t, sink.BodyReader)
		data, err := io.ReadAll(sink.BodyReader)
		require.NoError(t, err)
		assert.Equal(t, "object data", string(data))
		assert.Equal(t, 1, conn.Closes())

		_ = sink.BodyReader.Close()
		assert.Equal(t, 1, conn.Closes())
	})

	t.Run("closing body early", func(t *testing.T) {
		srv := testutil.NewRawServer(t, okResponder("object data"))
		dialer := &testutil.CountingDialer{}
		sink := &testutil.RecordingSink{KeepBody: true}

		require.True(t, plainRequest(s3types.MethodGet, "/bucket/key", WithDialer(dialer)).
			Process(context.Background(), testCredential(srv.Host), sink, false))
		conn := dialer.Conns()[0]

		require.NoError(t, sink.BodyReader.Close())
		_ = sink.BodyReader.Close()
		assert.Equal(t, 1, conn.Closes())
	})

	t.Run("close before return", func(t *testing.T) {
		srv := testutil.NewRawServer(t, okResponder("object data"))
		dialer := &testutil.CountingDialer{}
		sink := &testutil.RecordingSink{}

		require.True(t, plainRequest(s3types.MethodGet, "/bucket/key", WithDialer(dialer)).
			Process(context.Background(), testCredential(srv.Host), sink, true))
		assert.Equal(t, "object data", string(sink.Body))
		assert.Equal(t, 1, dialer.Conns()[0].Closes())
	})

	t.Run("no body closes even in transfer mode", func(t *testing.T) {
		srv := testutil.NewRawServer(t, func(*testutil.CapturedRequest) string {
			return testutil.Response(http.StatusForbidden, "")
		})
		dialer := &testutil.CountingDialer{}
		sink := &testutil.RecordingSink{KeepBody: true}

		assert.False(t, plainRequest(s3types.MethodHead, "/bucket/key", WithDialer(dialer)).
			Process(context.Background(), testCredential(srv.Host), sink, false))
		assert.Equal(t, 1, dialer.Conns()[0].Closes())
		assert.ErrorIs(t, sink.Err, errors.ErrAccessDenied)
	})
}

func TestProcess_TLS(t *testing.T) {
	srv := testutil.NewRawTLSServer(t, okResponder("secure"))
	sink := &testutil.RecordingSink{}

	req := NewRequest(s3types.MethodGet, "/bucket/key", WithDate(testTime), WithConfig(WithTLSConfig(srv.TLSConfig)))
	require.True(t, req.Process(context.Background(), testCredential(srv.Host), sink, true), "exception: %v", sink.Exception)

	assert.Equal(t, "secure", string(sink.Body))
	assert.Equal(t, "AWS AKID:DhKO3YeGD5Yoqdjx7EZshBAnQwo=", srv.Last().Header("Authorization"))
}

func TestProcess_Metrics(t *testing.T) {
	srv := testutil.NewRawServer(t, okResponder(""))
	reg := prometheus.NewRegistry()

	req := plainRequest(s3types.MethodPut, "/bucket/key", WithMetrics(reg))
	require.NoError(t, req.SetBody(s3types.Body{Reader: strings.NewReader("hello"), ContentLength: 5}))
	require.True(t, req.Process(context.Background(), testCredential(srv.Host), nil, true))

	srv.SetResponder(func(*testutil.CapturedRequest) string {
		return testutil.Response(http.StatusNotFound, "")
	})
	require.False(t, plainRequest(s3types.MethodGet, "/bucket/key", WithMetrics(reg)).
		Process(context.Background(), testCredential(srv.Host), nil, true))

	expected := `
# HELP s3sig_client_requests_total Total number of signed requests, partitioned by method and outcome.
# TYPE s3sig_client_requests_total counter
s3sig_client_requests_total{method="GET",outcome="error"} 1
s3sig_client_requests_total{method="PUT",outcome="success"} 1
# HELP s3sig_client_upload_bytes_total Total number of request body bytes written.
# TYPE s3sig_client_upload_bytes_total counter
s3sig_client_upload_bytes_total{method="PUT"} 5
`
	assert.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected),
		"s3sig_client_requests_total", "s3sig_client_upload_bytes_total"))
}

// slowServer answers one request with resp, runs then and keeps the
// connection open until the test ends.
func slowServer(t *testing.T, resp string, then func(c net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		_ = ln.Close()
	})

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = http.ReadRequest(bufio.NewReader(c))
		_, _ = io.WriteString(c, resp)
		if then != nil {
			then(c)
		}
		<-done
	}()
	return ln.Addr().String()
}

func TestProcess_CancelInterruptsExchange(t *testing.T) {
	host := slowServer(t, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	sink := &testutil.RecordingSink{}
	finished := make(chan bool, 1)
	go func() {
		finished <- plainRequest(s3types.MethodGet, "/bucket/key").Process(ctx, testCredential(host), sink, true)
	}()

	select {
	case ok := <-finished:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Process not interrupted by cancel")
	}
	assert.Equal(t, []string{testutil.EventException}, sink.Events)
	assert.ErrorIs(t, sink.Exception, context.Canceled)
}

func TestProcess_TransferredBody(t *testing.T) {
	t.Run("close does not drain", func(t *testing.T) {
		host := slowServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 1073741824\r\n\r\nhello", nil)
		dialer := &testutil.CountingDialer{}
		sink := &testutil.RecordingSink{KeepBody: true}

		require.True(t, plainRequest(s3types.MethodGet, "/bucket/key", WithDialer(dialer)).
			Process(context.Background(), testCredential(host), sink, false))

		buf := make([]byte, 5)
		_, err := io.ReadFull(sink.BodyReader, buf)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(buf))

		closed := make(chan struct{})
		go func() {
			_ = sink.BodyReader.Close()
			close(closed)
		}()
		select {
		case <-closed:
		case <-time.After(2 * time.Second):
			t.Fatal("Close blocked on the unread remainder of the body")
		}
		assert.Equal(t, 1, dialer.Conns()[0].Closes())
	})

	t.Run("outlives timeout and context", func(t *testing.T) {
		host := slowServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n", func(c net.Conn) {
			time.Sleep(300 * time.Millisecond)
			_, _ = io.WriteString(c, "hello")
		})
		ctx, cancel := context.WithCancel(context.Background())
		sink := &testutil.RecordingSink{KeepBody: true}

		require.True(t, plainRequest(s3types.MethodGet, "/bucket/key", WithTimeout(100*time.Millisecond)).
			Process(ctx, testCredential(host), sink, false))
		cancel()

		data, err := io.ReadAll(sink.BodyReader)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})
}
