package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	comparisonIDPrefix = "cmp_"
)

var comparisonIDPattern = regexp.MustCompile(`^cmp_[a-zA-Z0-9]{24}$`)

// NewComparisonID generates a new comparison ID with the "cmp_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewComparisonID() string {
	return comparisonIDPrefix + randomAlphanumeric(idLength)
}

// ValidateComparisonID checks whether the given string is a valid comparison
// ID (matches "cmp_" + 24 alphanumeric characters).
func ValidateComparisonID(id string) bool {
	return comparisonIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
