package errors

// ErrorCode is the <Code> element of an S3 error response body.
// Codes are kept as strings so unknown codes from the service survive untouched.
type ErrorCode string

const (
	// Resource errors.

	// CodeNoSuchKey indicates the requested object does not exist.
	CodeNoSuchKey ErrorCode = "NoSuchKey"

	// CodeNoSuchBucket indicates the requested bucket does not exist.
	CodeNoSuchBucket ErrorCode = "NoSuchBucket"

	// CodeBucketAlreadyExists indicates the bucket name is taken by another account.
	CodeBucketAlreadyExists ErrorCode = "BucketAlreadyExists"

	// CodeBucketAlreadyOwnedByYou indicates the bucket already exists and is owned by the caller.
	CodeBucketAlreadyOwnedByYou ErrorCode = "BucketAlreadyOwnedByYou"

	// CodeBucketNotEmpty indicates a bucket delete was attempted on a non-empty bucket.
	CodeBucketNotEmpty ErrorCode = "BucketNotEmpty"

	// Permission errors.

	// CodeAccessDenied indicates the caller lacks permission for the operation.
	CodeAccessDenied ErrorCode = "AccessDenied"

	// CodeInvalidAccessKeyID indicates the access key id is not known to the service.
	CodeInvalidAccessKeyID ErrorCode = "InvalidAccessKeyId"

	// CodeSignatureDoesNotMatch indicates the computed signature differs from the one sent.
	CodeSignatureDoesNotMatch ErrorCode = "SignatureDoesNotMatch"

	// CodeRequestTimeTooSkewed indicates the Date header is too far from server time.
	CodeRequestTimeTooSkewed ErrorCode = "RequestTimeTooSkewed"

	// Validation errors.

	// CodeInvalidArgument indicates a malformed request argument.
	CodeInvalidArgument ErrorCode = "InvalidArgument"

	// CodeInvalidDigest indicates the Content-MD5 header is not valid.
	CodeInvalidDigest ErrorCode = "InvalidDigest"

	// CodeBadDigest indicates the Content-MD5 did not match the received body.
	CodeBadDigest ErrorCode = "BadDigest"

	// CodeIncompleteBody indicates fewer bytes arrived than Content-Length announced.
	CodeIncompleteBody ErrorCode = "IncompleteBody"

	// CodeMissingContentLength indicates a PUT was sent without Content-Length.
	CodeMissingContentLength ErrorCode = "MissingContentLength"

	// Service errors.

	// CodeInternalError indicates the service failed internally.
	CodeInternalError ErrorCode = "InternalError"

	// CodeServiceUnavailable indicates the service is temporarily unavailable.
	CodeServiceUnavailable ErrorCode = "ServiceUnavailable"

	// CodeSlowDown indicates the request rate must be reduced.
	CodeSlowDown ErrorCode = "SlowDown"
)

// serverFault reports whether the service rather than the caller is responsible for c.
func (c ErrorCode) serverFault() bool {
	switch c {
	case CodeInternalError, CodeServiceUnavailable, CodeSlowDown:
		return true
	}
	return false
}
