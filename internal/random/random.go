// Package random provides cryptographically random byte generation for the
// rest of the internal ambient stack (currently just internal/identifier).
package random

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// New returns a byte slice of the specified length with cryptographically
// random contents.
func New(length int) ([]byte, error) {
	result := make([]byte, length)
	if _, err := rand.Read(result); err != nil {
		return nil, errors.Wrap(err, "unable to read random data")
	}
	return result, nil
}
