package testutil

import (
	"crypto/md5" //nolint:gosec // Content-MD5 is defined as MD5
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// GenerateRandomData generates random bytes of the specified size.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// GenerateTestKey generates a unique S3 object key for testing.
func GenerateTestKey(prefix string) string {
	timestamp := time.Now().UnixNano()
	random := rand.Int63n(100000)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, timestamp, random)
}

// GenerateTestBucketName generates a unique, DNS-compliant bucket name for testing.
func GenerateTestBucketName(prefix string) string {
	timestamp := time.Now().Unix()
	random := rand.Int31n(10000)
	name := fmt.Sprintf("%s-%d-%d", prefix, timestamp, random)
	// Ensure DNS compliance
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// ContentMD5 returns the base64 MD5 digest used in the Content-MD5 header.
func ContentMD5(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:])
}

// XMLError renders an S3 error document.
func XMLError(code, message, resource, requestID string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		"<Error><Code>" + code + "</Code><Message>" + message + "</Message>" +
		"<Resource>" + resource + "</Resource><RequestId>" + requestID + "</RequestId></Error>"
}
