package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
)

const (
	httpsPort = "443"
	httpPort  = "80"
)

// Dialer opens the raw network connection.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config controls how connections are opened.
type Config struct {
	Dialer     Dialer      // nil means a net.Dialer bounded by Timeout
	TLSConfig  *tls.Config // cloned per connection; ServerName is always set to the host
	DisableSSL bool
	Timeout    time.Duration // bounds dialing and the whole exchange; zero means none
	Logger     *slog.Logger
}

// Address returns the host:port to dial and the bare host name for host,
// adding the scheme's default port when host carries none.
func Address(host string, disableSSL bool) (addr, hostname string) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return host, h
	}
	port := httpsPort
	if disableSSL {
		port = httpPort
	}
	return net.JoinHostPort(host, port), host
}

// Dial connects to host and, unless SSL is disabled, completes a TLS handshake.
func Dial(ctx context.Context, cfg Config, host string) (*Conn, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.Timeout}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	addr, hostname := Address(host, cfg.DisableSSL)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", errors.ErrConnection, addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: set deadline: %w", errors.ErrConnection, err)
		}
	}

	if !cfg.DisableSSL {
		config := cfg.TLSConfig.Clone()
		if config == nil {
			config = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		config.ServerName = hostname
		tc := tls.Client(conn, config)
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: tls handshake with %s: %w", errors.ErrConnection, addr, err)
		}
		conn = tc
	}

	logger.Debug("connected", "addr", addr, "tls", !cfg.DisableSSL)
	return newConn(conn, logger), nil
}
