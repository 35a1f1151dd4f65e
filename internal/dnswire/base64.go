package dnswire

import (
	"encoding/base64"
	"strings"
)

// base64urlEncoding is RFC 4648 §5 base64url with padding stripped, the
// form the `dns=` GET parameter uses.
var base64urlEncoding = base64.RawURLEncoding

// Base64URLEncode encodes bytes as unpadded base64url.
func Base64URLEncode(b []byte) string {
	return base64urlEncoding.EncodeToString(b)
}

// Base64URLDecode decodes unpadded base64url. It also tolerates a
// caller-supplied string that happens to carry `=` padding, since some
// DoH clients pad despite RFC 8484 §4.1's recommendation not to.
func Base64URLDecode(s string) ([]byte, error) {
	if b, err := base64urlEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(padBase64(s))
}

func padBase64(s string) string {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}
