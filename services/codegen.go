package services

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultCodeLength gives 62^8 possible codes.
	DefaultCodeLength = 8

	claimTokenLength = 32
)

// Custom aliases may also contain '_' and '-'; generated codes are
// alphanumeric only. Length bounds follow the API contract (3-20).
var aliasRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// GenerateCode returns a random code of the given length drawn uniformly
// from the alphanumeric charset. It uses crypto/rand so codes are not
// guessable. Uniqueness is the caller's problem.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	code := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = charset[n.Int64()]
	}
	return string(code), nil
}

func generateClaimToken() (string, error) {
	return GenerateCode(claimTokenLength)
}

// ValidAlias reports whether s is acceptable as a short code.
func ValidAlias(s string) bool {
	return aliasRe.MatchString(s)
}
