package utils

import (
	"crypto/rand" // Cryptographic randomness for code generation
)

const referralCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode produces a random 8-character uppercase alphanumeric
// referral code. Uniqueness is enforced by the database index; callers retry
// on collision.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeChars[int(b)%len(referralCodeChars)]
	}
	return string(buf), nil
}
