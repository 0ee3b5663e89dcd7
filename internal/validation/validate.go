// Package validation checks client inputs before a request is signed.
// Bucket names follow the DNS-compliant S3 rules; object keys and metadata
// are checked for what can travel safely in a request line or header.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
)

const (
	maxKeyLength           = 1024
	maxMetadataKeyLength   = 128
	maxMetadataValueLength = 2048
)

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
func ValidateBucketName(bucket string) error {
	invalid := func(msg string) error {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithPath("/" + bucket).
			WithMessage(msg)
	}

	if bucket == "" {
		return invalid("bucket name cannot be empty")
	}
	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return invalid("bucket name must be between 3 and 63 characters long")
	}
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return invalid("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	if strings.IndexByte("-.", bucket[0]) >= 0 || strings.IndexByte("-.", bucket[len(bucket)-1]) >= 0 {
		return invalid("bucket name cannot start or end with a hyphen or dot")
	}
	if isIPAddress(bucket) {
		return invalid("bucket name cannot be formatted as an IP address")
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") {
		return invalid("bucket name cannot contain two adjacent periods or hyphens")
	}
	if bucket == "localhost" {
		return invalid("bucket name cannot be a reserved word")
	}
	return nil
}

// ValidateObjectKey validates that an object key is valid according to AWS S3 rules.
// This includes preventing path traversal attacks and ensuring valid characters.
func ValidateObjectKey(key string) error {
	invalid := func(msg string) error {
		return errors.NewError("validateObjectKey", errors.ErrInvalidInput).
			WithPath(key).
			WithMessage(msg)
	}

	switch {
	case key == "":
		return invalid("object key cannot be empty")
	case hasPathTraversal(key):
		return invalid("object key cannot contain path traversal sequences")
	case len(key) > maxKeyLength:
		return invalid("object key cannot exceed 1024 characters")
	case hasControlCharacters(key):
		return invalid("object key cannot contain control characters")
	}
	return nil
}

// ValidateMetadata validates metadata keys and values. Keys become part of
// an x-amz-meta-* header name.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}
	return true
}

// hasPathTraversal checks for path traversal attempts in object keys
func hasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}

	cleaned := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths
	return len(cleaned) >= 3 && cleaned[1] == ':' && cleaned[2] == '/'
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	return strings.IndexFunc(key, unicode.IsControl) >= 0
}

func validateMetadataKey(key string) error {
	invalid := func(msg string) error {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).WithMessage(msg)
	}

	if key == "" {
		return invalid("metadata key cannot be empty")
	}
	if len(key) > maxMetadataKeyLength {
		return invalid("metadata key cannot exceed 128 characters")
	}
	for _, prefix := range []string{"aws:", "x-amz-"} {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return invalid(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}
	// header name token characters only
	for _, char := range key {
		if char <= ' ' || char > '~' || strings.ContainsRune(`"(),/:;<=>?@[\]{}`, char) {
			return invalid(fmt.Sprintf("metadata key %q contains a character not allowed in a header name", key))
		}
	}
	return nil
}

func validateMetadataValue(value string) error {
	if len(value) > maxMetadataValueLength {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	// newlines are removed before sending
	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\n' && char != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}
	return nil
}
