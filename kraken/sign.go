package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
)

// signRequest computes the API-Sign header for a private endpoint call:
// HMAC-SHA512 of (path + SHA256(nonce + encoded payload)) keyed with the
// base64-decoded API secret.
func signRequest(secret, path, nonce, encodedPayload string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("invalid API secret: %w", err)
	}

	digest := sha256.Sum256([]byte(nonce + encodedPayload))
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
