// Package classify turns an S3 response into ResultSink callbacks.
package classify

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

const (
	// MetadataPrefix marks user metadata headers; matched case-insensitively.
	MetadataPrefix = "x-amz-meta-"

	HeaderRequestID = "X-Amz-Request-Id"
	HeaderID2       = "X-Amz-Id-2"

	xmlContentType = "application/xml"

	// maxErrorBody caps how much of an error body is buffered.
	maxErrorBody = 1 << 20
)

// Options controls classification.
type Options struct {
	// Parser decodes XML error bodies; nil means ParseXMLError.
	Parser s3types.ErrorParser

	// WrapBody, if set, wraps a successful response body before OnBody.
	WrapBody func(io.ReadCloser) io.ReadCloser
}

// Classify reports resp to sink. Headers are dispatched first, in sorted key
// order, then exactly one of OnSuccess or OnError is called. For a 2xx
// response that can carry content the body follows through OnBody, and
// delivered is true.
//
// A non-nil error means no terminal callback was made.
func Classify(resp *http.Response, method s3types.Method, opts Options, sink s3types.ResultSink) (delivered bool, err error) {
	DispatchHeaders(resp.Header, sink)

	requestID := resp.Header.Get(HeaderRequestID)
	id2 := resp.Header.Get(HeaderID2)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		sink.OnSuccess(resp.StatusCode, requestID, id2)
		if !HasContent(method, resp.StatusCode) {
			return false, nil
		}
		body := resp.Body
		if opts.WrapBody != nil {
			body = opts.WrapBody(body)
		}
		sink.OnBody(body)
		return true, nil
	}

	res, err := ResponseError(resp, opts.Parser)
	if err != nil {
		return false, err
	}
	sink.OnError(resp.StatusCode, res, requestID, id2)
	return false, nil
}

// HasContent reports whether a successful response to method may carry a
// body. HEAD responses and 204/205 never do.
func HasContent(method s3types.Method, status int) bool {
	if method == s3types.MethodHead {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusResetContent
}

// DispatchHeaders sends every header value to sink, one call per value.
// Metadata headers go to OnMetadata with the prefix stripped and the name
// lower-cased; all others go to OnHeader.
func DispatchHeaders(h http.Header, sink s3types.ResultSink) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name, isMeta := MetadataName(k)
		for _, v := range h[k] {
			if isMeta {
				sink.OnMetadata(name, v)
			} else {
				sink.OnHeader(k, v)
			}
		}
	}
}

// MetadataName reports whether header is a metadata header and returns its
// lower-cased name without the prefix.
func MetadataName(header string) (string, bool) {
	if len(header) < len(MetadataPrefix) || !strings.EqualFold(header[:len(MetadataPrefix)], MetadataPrefix) {
		return "", false
	}
	return strings.ToLower(header[len(MetadataPrefix):]), true
}

// ResponseError builds the structured error for a non-2xx response.
// An application/xml body longer than two bytes is handed to parser; any
// other body, or one parser rejects, becomes the message verbatim.
func ResponseError(resp *http.Response, parser s3types.ErrorParser) (*errors.ResponseError, error) {
	if parser == nil {
		parser = ParseXMLError
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			return nil, fmt.Errorf("%w: reading error body: %w", errors.ErrMalformedResponse, err)
		}
	}

	var res *errors.ResponseError
	if resp.Header.Get("Content-Type") == xmlContentType && len(body) > 2 {
		if parsed, err := parser(body); err == nil && parsed != nil {
			res = parsed
		}
	}
	if res == nil {
		res = &errors.ResponseError{Message: string(body)}
	}

	res.StatusCode = resp.StatusCode
	if res.RequestID == "" {
		res.RequestID = resp.Header.Get(HeaderRequestID)
	}
	if res.HostID == "" {
		res.HostID = resp.Header.Get(HeaderID2)
	}
	return res, nil
}
