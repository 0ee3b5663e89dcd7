package signing

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Signature Version 2 is defined over HMAC-SHA1.
	"encoding/base64"
)

// AuthScheme prefixes the Authorization header value.
const AuthScheme = "AWS"

// Sign returns base64(HMAC-SHA1(secret, canonical)).
// secret is used as-is; it is never decoded from any textual encoding.
func Sign(secret []byte, canonical string) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization formats the Authorization header value for accessKeyID and signature.
func Authorization(accessKeyID, signature string) string {
	return AuthScheme + " " + accessKeyID + ":" + signature
}
