package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference creates a unique reference with the given prefix, e.g.
// "PKG-1735689600000-X4T9QZ2PM". The timestamp keeps references sortable;
// the random suffix keeps them unguessable.
func NewReference(prefix string) (string, error) {
	suffix := make([]byte, 9)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate reference: %w", err)
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), string(suffix)), nil
}
