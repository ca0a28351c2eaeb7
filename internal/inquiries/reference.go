package inquiries

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	referencePrefix    = "TG"
	referenceSuffixLen = 9
	base36Alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var referencePattern = regexp.MustCompile(`^TG-\d{10,}-[0-9A-Z]{9}$`)

// NewReference returns a public reference such as TG-1712345678901-K3J9Q0Z1A.
func NewReference(now time.Time) (string, error) {
	var b strings.Builder
	b.Grow(referenceSuffixLen)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < referenceSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		b.WriteByte(base36Alphabet[n.Int64()])
	}
	return fmt.Sprintf("%s-%d-%s", referencePrefix, now.UnixMilli(), b.String()), nil
}

// ValidReference reports whether value has the public reference shape.
func ValidReference(value string) bool {
	return referencePattern.MatchString(value)
}
