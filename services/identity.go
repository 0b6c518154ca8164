package services

import (
	"encoding/base64"
	"fmt"
)

// EncodeIdentity derives a property's document key from its listing URL.
// The key is URL-safe unpadded base64 of the raw URL, so it contains no '/'
// and DecodeIdentity recovers the URL exactly.
func EncodeIdentity(propertyURL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(propertyURL))
}

// DecodeIdentity returns the listing URL a key was derived from.
func DecodeIdentity(id string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("identity: decode %q: %w", id, err)
	}
	return string(b), nil
}
