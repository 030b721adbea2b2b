package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(s string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether plain matches hashed. Hashes written by
// the old seeding scripts are unsalted SHA-256 hex and are still accepted.
func ComparePassword(hashed, plain string) bool {
	if IsLegacyHash(hashed) {
		sum := sha256.Sum256([]byte(plain))
		want := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(hashed)), []byte(want)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// IsLegacyHash matches a 64 character hex digest.
func IsLegacyHash(hashed string) bool {
	if len(hashed) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hashed)
	return err == nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

// dummyHash is compared against for unknown usernames so both failure paths
// cost one bcrypt comparison.
func dummyHash() string {
	dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("salesboard-unknown-user"), bcrypt.DefaultCost)
		if err == nil {
			dummy = string(h)
		}
	})
	return dummy
}
