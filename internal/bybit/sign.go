package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// sign computes the v5 request signature:
// HMAC-SHA256(secret, timestamp + apiKey + recvWindow + payload), hex-encoded.
// payload is the raw query string for GETs and the raw JSON body for POSTs.
func sign(secret, timestamp, apiKey, recvWindow, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + apiKey + recvWindow + payload))
	return hex.EncodeToString(mac.Sum(nil))
}
