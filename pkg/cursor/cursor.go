// Package cursor implements the opaque pagination token: a reversible,
// URL-safe encoding of a non-negative sequence offset.
package cursor

import (
	"encoding/base64"
	"strconv"
)

// Encode turns an offset into an opaque token.
func Encode(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// Decode reverses Encode. Malformed tokens are never an error: an empty
// token, invalid base64, a non-numeric payload or a negative offset all
// degrade to (0, false), which callers treat as the start of the
// sequence.
func Decode(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, false
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, false
	}
	return offset, true
}
