package testutil

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// CapturedRequest is a request exactly as it arrived on the wire.
type CapturedRequest struct {
	RequestLine string
	HeaderLines []string // "Name: value" in wire order
	Body        []byte
	BodyErr     error // set when the body ended before Content-Length
}

// Method returns the request method.
func (r *CapturedRequest) Method() string {
	m, _, _ := strings.Cut(r.RequestLine, " ")
	return m
}

// Target returns the request target (path and query).
func (r *CapturedRequest) Target() string {
	_, rest, _ := strings.Cut(r.RequestLine, " ")
	target, _, _ := strings.Cut(rest, " ")
	return target
}

// HeaderNames returns the header names in wire order, case preserved.
func (r *CapturedRequest) HeaderNames() []string {
	names := make([]string, 0, len(r.HeaderLines))
	for _, l := range r.HeaderLines {
		name, _, _ := strings.Cut(l, ":")
		names = append(names, name)
	}
	return names
}

// Header returns the value of the first header whose name matches exactly.
func (r *CapturedRequest) Header(name string) string {
	for _, l := range r.HeaderLines {
		if n, v, ok := strings.Cut(l, ": "); ok && n == name {
			return v
		}
	}
	return ""
}

// Responder builds the raw response for a captured request.
type Responder func(req *CapturedRequest) string

// RawServer is a one-request-per-connection HTTP/1.1 server that records
// the raw request head so that header order and case can be asserted.
type RawServer struct {
	// Host is the address clients should use as the credential host
	Host string

	// TLSConfig trusts the server certificate; nil for a plain server
	TLSConfig *tls.Config

	ln       net.Listener
	respond  atomic.Value // Responder
	wg       sync.WaitGroup
	mu       sync.Mutex
	requests []*CapturedRequest
}

// NewRawServer starts a plain TCP server.
func NewRawServer(t testing.TB, respond Responder) *RawServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return startRawServer(t, ln, nil, respond)
}

// NewRawTLSServer starts a TLS server with a self-signed certificate for 127.0.0.1.
func NewRawTLSServer(t testing.TB, respond Responder) *RawServer {
	t.Helper()

	// borrow httptest's certificate
	hs := httptest.NewUnstartedServer(http.NotFoundHandler())
	hs.StartTLS()
	serverCfg := hs.TLS.Clone()
	cert := hs.Certificate()
	hs.Close()

	roots := x509.NewCertPool()
	roots.AddCert(cert)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return startRawServer(t, tls.NewListener(ln, serverCfg), &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}, respond)
}

func startRawServer(t testing.TB, ln net.Listener, clientCfg *tls.Config, respond Responder) *RawServer {
	s := &RawServer{Host: ln.Addr().String(), TLSConfig: clientCfg, ln: ln}
	s.SetResponder(respond)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serve(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

// SetResponder replaces the response builder.
func (s *RawServer) SetResponder(respond Responder) {
	s.respond.Store(respond)
}

// Requests returns the requests received so far.
func (s *RawServer) Requests() []*CapturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*CapturedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Last returns the most recent request, or nil.
func (s *RawServer) Last() *CapturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *RawServer) serve(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)

	req := &CapturedRequest{}
	line, err := br.ReadString('\n')
	if err != nil {
		return
	}
	req.RequestLine = strings.TrimRight(line, "\r\n")

	length := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		req.HeaderLines = append(req.HeaderLines, line)
		if name, v, ok := strings.Cut(line, ":"); ok && strings.EqualFold(name, "Content-Length") {
			length, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}

	req.Body = make([]byte, length)
	n, err := io.ReadFull(br, req.Body)
	req.Body = req.Body[:n]
	req.BodyErr = err

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err != nil {
		return
	}
	respond := s.respond.Load().(Responder)
	_, _ = io.WriteString(conn, respond(req))
}

// Response renders a raw HTTP/1.1 response. headers are name, value pairs
// written in order; Content-Length is added unless given.
func Response(status int, body string, headers ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	hasLength := false
	for i := 0; i+1 < len(headers); i += 2 {
		if strings.EqualFold(headers[i], "Content-Length") {
			hasLength = true
		}
		fmt.Fprintf(&b, "%s: %s\r\n", headers[i], headers[i+1])
	}
	if !hasLength {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("Connection: close\r\n\r\n")
	b.WriteString(body)
	return b.String()
}

// CountingDialer dials TCP and counts Close calls on every connection it opens.
type CountingDialer struct {
	net.Dialer

	mu    sync.Mutex
	conns []*CountingConn
}

// CountingConn is a net.Conn that counts Close calls.
type CountingConn struct {
	net.Conn
	closes atomic.Int32
}

// Close counts and closes.
func (c *CountingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// Closes returns how many times Close was called.
func (c *CountingConn) Closes() int {
	return int(c.closes.Load())
}

// CloseWrite forwards to the wrapped connection when supported.
func (c *CountingConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// DialContext dials and records the connection.
func (d *CountingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	cc := &CountingConn{Conn: conn}
	d.mu.Lock()
	d.conns = append(d.conns, cc)
	d.mu.Unlock()
	return cc, nil
}

// Conns returns the connections opened so far.
func (d *CountingDialer) Conns() []*CountingConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*CountingConn, len(d.conns))
	copy(out, d.conns)
	return out
}
