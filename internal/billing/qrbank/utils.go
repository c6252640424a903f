package qrbank

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

func randomNumber() (string, error) {
	min := big.NewInt(100000000000000000)
	max := big.NewInt(999999999999999999)
	n, err := rand.Int(rand.Reader, new(big.Int).Sub(max, min))
	if err != nil {
		return "", err
	}

	n.Add(n, min)
	return n.String(), nil
}

// CompareHash reports whether plain matches the stored bcrypt hash.
func CompareHash(storedHash, plain []byte) bool {
	if err := bcrypt.CompareHashAndPassword(storedHash, plain); err != nil {
		return false
	}
	return true
}

// GenerateHash bcrypt-hashes a shared secret for storage.
func GenerateHash(plain []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(plain, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Hmac256 is a function to generate HMAC256 hash.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifySignedRef verifies the HMAC over a reference and returns it if valid.
func VerifySignedRef(key, ref, receivedHMAC string) (string, bool) {
	expectedHMAC := Hmac256([]byte(ref), []byte(key))
	if hmac.Equal([]byte(receivedHMAC), []byte(expectedHMAC)) {
		return ref, true
	}

	return "", false
}
