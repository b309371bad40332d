package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateReference creates a short random reference with the given prefix,
// e.g. "RCPT-4F09AC21BD". Used for receipt and transaction numbers printed on
// fee receipts.
func GenerateReference(prefix string) (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex.EncodeToString(b))), nil
}
