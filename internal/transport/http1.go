package transport

import (
	"fmt"
	"io"

	"golang.org/x/net/http/httpguts"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/pool"
)

// Field is a header line. Name is written as given.
type Field struct {
	Name  string
	Value string
}

// RequestHead is the request line and header block of a request.
type RequestHead struct {
	Method string
	Target string // path and optional ?query
	Fields []Field
}

// Validate checks every header name and value before anything is written.
func (h *RequestHead) Validate() error {
	for _, f := range h.Fields {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return fmt.Errorf("%w: invalid header name %q", errors.ErrInvalidInput, f.Name)
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return fmt.Errorf("%w: invalid value for header %q", errors.ErrInvalidInput, f.Name)
		}
	}
	return nil
}

// WriteHead writes the request line and headers, e.g.:
//
//	PUT /bucket/key HTTP/1.1\r\n
//	Host: s3.amazonaws.com\r\n
//	x-amz-meta-Color: red\r\n
//	\r\n
func (c *Conn) WriteHead(h *RequestHead) error {
	if err := h.Validate(); err != nil {
		return err
	}

	w := c.bw
	w.WriteString(h.Method)
	w.WriteByte(' ')
	w.WriteString(h.Target)
	w.WriteString(" HTTP/1.1\r\n")
	for _, f := range h.Fields {
		w.WriteString(f.Name)
		w.WriteString(": ")
		w.WriteString(f.Value)
		w.WriteString("\r\n")
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// StreamBody copies exactly length bytes from r in chunks of
// pool.ChunkSize, flushing each chunk before reporting its size to notify.
// A false return from notify shuts down the write side and yields
// errors.ErrUploadAborted. A source shorter than length yields
// io.ErrUnexpectedEOF. notify may be nil.
func (c *Conn) StreamBody(r io.Reader, length int64, notify func(n int) bool) (int64, error) {
	buf := pool.GetChunk()
	defer pool.PutChunk(buf)

	var sent int64
	for sent < length {
		chunk := buf
		if rem := length - sent; rem < int64(len(chunk)) {
			chunk = chunk[:rem]
		}

		n, rerr := io.ReadFull(r, chunk)
		if n > 0 {
			if _, err := c.bw.Write(chunk[:n]); err != nil {
				return sent, err
			}
			if err := c.bw.Flush(); err != nil {
				return sent, err
			}
			sent += int64(n)
			if notify != nil && !notify(n) {
				c.closeWrite()
				return sent, errors.ErrUploadAborted
			}
		}

		switch rerr {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return sent, fmt.Errorf("body ended after %d of %d bytes: %w", sent, length, io.ErrUnexpectedEOF)
		default:
			return sent, rerr
		}
	}
	return sent, nil
}
