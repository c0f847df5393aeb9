package room

import (
	"crypto/rand"
	"math/big"
)

// Codes are typed by hand across the table, so they stay short and
// uppercase. The store normalizes case on every lookup.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

// GenerateCode returns a random room code. Uniqueness is the store's job;
// it retries on collision.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
