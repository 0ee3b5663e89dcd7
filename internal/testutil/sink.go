// Package testutil provides test helpers for signed S3 requests.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

// Callback names recorded by RecordingSink.
const (
	EventSuccess   = "success"
	EventError     = "error"
	EventException = "exception"
	EventHeader    = "header"
	EventMetadata  = "metadata"
	EventBody      = "body"
)

// Header is a recorded OnHeader or OnMetadata call.
type Header struct {
	Key   string
	Value string
}

// RecordingSink records every ResultSink callback in order.
// By default OnBody reads the body fully and closes it; set KeepBody to
// store the reader in BodyReader instead.
type RecordingSink struct {
	KeepBody bool

	Events    []string
	Headers   []Header
	Metadata  []Header
	Code      int
	RequestID string
	ID2       string
	Err       *errors.ResponseError
	Exception error

	Body       []byte
	BodyErr    error
	BodyReader io.ReadCloser
}

var _ s3types.ResultSink = (*RecordingSink)(nil)

func (s *RecordingSink) OnSuccess(code int, requestID, id2 string) {
	s.Events = append(s.Events, EventSuccess)
	s.Code, s.RequestID, s.ID2 = code, requestID, id2
}

func (s *RecordingSink) OnError(code int, res *errors.ResponseError, requestID, id2 string) {
	s.Events = append(s.Events, EventError)
	s.Code, s.Err, s.RequestID, s.ID2 = code, res, requestID, id2
}

func (s *RecordingSink) OnException(err error) {
	s.Events = append(s.Events, EventException)
	s.Exception = err
}

func (s *RecordingSink) OnHeader(key, value string) {
	s.Events = append(s.Events, EventHeader)
	s.Headers = append(s.Headers, Header{key, value})
}

func (s *RecordingSink) OnMetadata(key, value string) {
	s.Events = append(s.Events, EventMetadata)
	s.Metadata = append(s.Metadata, Header{key, value})
}

func (s *RecordingSink) OnBody(body io.ReadCloser) {
	s.Events = append(s.Events, EventBody)
	if s.KeepBody {
		s.BodyReader = body
		return
	}
	s.Body, s.BodyErr = io.ReadAll(body)
	_ = body.Close()
}

// Header returns the first recorded value for an OnHeader key.
func (s *RecordingSink) Header(key string) string {
	for _, h := range s.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// Count returns how many times the named callback fired.
func (s *RecordingSink) Count(event string) int {
	n := 0
	for _, e := range s.Events {
		if e == event {
			n++
		}
	}
	return n
}

// AssertCallbackOrder checks the sink contract: exactly one terminal
// callback, headers and metadata only before it, and at most one body
// directly after a success.
func (s *RecordingSink) AssertCallbackOrder(t testing.TB) bool {
	t.Helper()

	terminals := s.Count(EventSuccess) + s.Count(EventError) + s.Count(EventException)
	if !assert.Equal(t, 1, terminals, "terminal callbacks in %v", s.Events) {
		return false
	}

	seenTerminal := false
	for i, e := range s.Events {
		switch e {
		case EventHeader, EventMetadata:
			if !assert.False(t, seenTerminal, "%s after terminal callback in %v", e, s.Events) {
				return false
			}
		case EventBody:
			if !assert.True(t, i > 0 && s.Events[i-1] == EventSuccess, "body not directly after success in %v", s.Events) {
				return false
			}
		default:
			seenTerminal = true
		}
	}
	return assert.LessOrEqual(t, s.Count(EventBody), 1)
}
