package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// randNumericCode generates an n-digit numeric code from crypto/rand.
// Rejection sampling keeps the digit distribution uniform.
func randNumericCode(n int) string {
	out := make([]byte, n)
	buf := make([]byte, 1)
	for i := 0; i < n; {
		if _, err := rand.Read(buf); err != nil {
			panic("otpkit: crypto/rand unavailable: " + err.Error())
		}
		// 250 is the largest multiple of 10 below 256.
		if buf[0] >= 250 {
			continue
		}
		out[i] = '0' + buf[0]%10
		i++
	}
	return string(out)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
