package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Conn is one client connection carrying a single request/response exchange.
// Close is idempotent; the underlying connection is closed exactly once.
type Conn struct {
	conn   net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func newConn(conn net.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		conn:   conn,
		br:     bufio.NewReader(conn),
		bw:     bufio.NewWriter(conn), // default bufsize is 4096
		logger: logger,
	}
}

// NewConn wraps an established connection, e.g. one end of net.Pipe.
func NewConn(conn net.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return newConn(conn, logger)
}

// Close closes the connection. Only the first call has an effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		if c.closeErr != nil {
			c.logger.Debug("closing connection", "error", c.closeErr)
		}
	})
	return c.closeErr
}

// CloseOnCancel closes the connection when ctx is done, interrupting any
// blocked write or read. The returned stop detaches ctx.
func (c *Conn) CloseOnCancel(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		c.logger.Debug("context done, closing connection", "error", ctx.Err())
		_ = c.Close()
	})
}

// closeWrite shuts down the sending side when the connection supports it.
func (c *Conn) closeWrite() {
	cw, ok := c.conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		c.logger.Debug("closing write side", "error", err)
	}
}

// ReadResponse reads the response to a request sent with method.
// HEAD responses carry no body regardless of Content-Length.
func (c *Conn) ReadResponse(method string) (*http.Response, error) {
	return http.ReadResponse(c.br, &http.Request{Method: method})
}

// OwnedBody wraps a response body so that the connection is closed when the
// body is closed or read to EOF, whichever comes first. The connection
// deadline is cleared; the body is read at the caller's pace.
func (c *Conn) OwnedBody(body io.ReadCloser) io.ReadCloser {
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		c.logger.Debug("clearing deadline", "error", err)
	}
	return &ownedBody{body: body, conn: c}
}

type ownedBody struct {
	body io.ReadCloser
	conn *Conn
}

func (b *ownedBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err == io.EOF {
		_ = b.conn.Close()
	}
	return n, err
}

// Close closes the connection first. A net/http response body drains what
// is left on Close, which must not reach the network.
func (b *ownedBody) Close() error {
	err := b.conn.Close()
	_ = b.body.Close()
	return err
}
