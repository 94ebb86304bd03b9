// Package pwgen is the thin, out-of-scope "generate a random password and
// score it" collaborator, grounded on the password-manager reference
// dependency github.com/nbutton23/zxcvbn-go named in
// other_examples/manifests/Hussein-Mazeh-PasswordManager/go.mod. Generation
// itself uses crypto/rand: no library in the dependency pack does secure
// random string generation better than the standard library.
package pwgen

import (
	"crypto/rand"
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*-_=+"

// Generate returns a random password of the given length drawn from a
// fixed alphanumeric-plus-symbol alphabet.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("pwgen: length must be positive")
	}
	out := make([]byte, length)
	idx := make([]byte, length)
	if _, err := rand.Read(idx); err != nil {
		return "", fmt.Errorf("pwgen: read random bytes: %w", err)
	}
	for i, b := range idx {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// Score reports zxcvbn's estimated strength of password on a 0-4 scale
// (0 = weakest, 4 = strongest), optionally biased by a user's own inputs
// (e.g. email, account label) that zxcvbn should penalize if reused.
func Score(password string, userInputs ...string) int {
	result := zxcvbn.PasswordStrength(password, userInputs)
	return result.Score
}
