// Package signing builds the AWS Signature Version 2 string to sign and the
// HMAC-SHA1 signature carried in the Authorization header.
//
// The string to sign is:
//
//	METHOD\n
//	Content-MD5\n
//	Content-Type\n
//	Date\n
//	lower(x-amz-meta-name):v1,v2\n   (one line per header, sorted)
//	/path[?acl|?torrent]
//
// Everything here is pure; the same Input always yields the same bytes
// regardless of metadata insertion order or case.
package signing
