// Package s3sig issues S3 requests authenticated with AWS Signature
// Version 2.
//
// A Request is built for one call, optionally given metadata, a query string,
// a body and an upload notifier, and then executed once with Process:
//
//	req := s3sig.NewRequest(s3types.MethodPut, "/bucket/photos/puppy.jpg",
//	    s3sig.WithConfig(s3sig.WithLogger(logger)))
//	req.AddMetadata("owner", "alice")
//	req.SetBody(s3types.Body{Reader: f, ContentType: "image/jpeg", ContentLength: size})
//	ok := req.Process(ctx, cred, sink, true)
//
// The outcome is reported through a s3types.ResultSink: response headers and
// x-amz-meta-* metadata first, then exactly one of OnSuccess, OnError or
// OnException, and after a success that carries content, the response body.
//
// Client wraps Request for the common object and bucket operations.
package s3sig
