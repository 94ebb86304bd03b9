// Package ids generates the opaque identifiers used throughout the
// document store: document/revision uuids and Strider's six-digit pull
// PINs.
package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh 128-bit identifier, formatted as the original
// implementation's uuid::Uuid::new_v4().simple() did: 32 hex characters,
// no hyphens, upper-cased.
func New() string {
	raw := uuid.New().String()
	return strings.ToUpper(strings.ReplaceAll(raw, "-", ""))
}

// pinMin and pinMax bound the inclusive range of a six-digit PIN.
const (
	pinMin = 100000
	pinMax = 999999
)

// GeneratePIN returns a six-digit decimal string used to key a Strider job.
// Uses crypto/rand rather than math/rand since the PIN doubles as part of
// the relay's access-control surface.
func GeneratePIN() (string, error) {
	span := big.NewInt(pinMax - pinMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%d", pinMin+n.Int64()), nil
}
