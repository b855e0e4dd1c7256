// Package identifier generates collision-resistant build invocation
// identifiers, in the same prefix_base62 shape the teacher uses for session
// identifiers.
package identifier

import (
	"regexp"
	"strings"

	"github.com/eknkc/basex"
	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/internal/random"
)

const (
	// PrefixBuildInvocation is the prefix used for build invocation
	// identifiers (see core.Record.BuildInvocationID).
	PrefixBuildInvocation = "bldi"

	// requiredPrefixLength is the required length for identifier prefixes.
	requiredPrefixLength = 4
	// collisionResistantLength is the number of random bytes needed to ensure
	// collision-resistance in an identifier.
	collisionResistantLength = 32
	// targetBase62Length is the target length for the Base62-encoded portion
	// of the identifier: the maximum length a collisionResistantLength-byte
	// array can take to encode in Base62, ceil(n*8*ln(2)/ln(62)).
	targetBase62Length = 43

	// base62Alphabet is the alphabet used for Base62 encoding.
	base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// base62 is the Base62 encoder, safe for concurrent use.
var base62 *basex.Encoding

// matcher validates the shape of generated identifiers.
var matcher = regexp.MustCompile("^[a-z]{4}_[0-9a-zA-Z]{43}$")

func init() {
	encoding, err := basex.NewEncoding(base62Alphabet)
	if err != nil {
		panic("unable to initialize Base62 encoder")
	}
	base62 = encoding
}

// New generates a new collision-resistant identifier with the specified
// prefix, which must have length requiredPrefixLength and consist of
// lowercase ASCII letters.
func New(prefix string) (string, error) {
	if len(prefix) != requiredPrefixLength {
		return "", errors.New("incorrect prefix length")
	}
	for _, r := range prefix {
		if !('a' <= r && r <= 'z') {
			return "", errors.New("invalid prefix character")
		}
	}

	randomBytes, err := random.New(collisionResistantLength)
	if err != nil {
		return "", errors.Wrap(err, "unable to generate random data")
	}

	encoded := base62.Encode(randomBytes)
	if len(encoded) > targetBase62Length {
		panic("encoded random data length longer than expected")
	}

	builder := &strings.Builder{}
	builder.WriteString(prefix)
	builder.WriteRune('_')
	for i := targetBase62Length - len(encoded); i > 0; i-- {
		builder.WriteByte(base62Alphabet[0])
	}
	builder.WriteString(encoded)

	return builder.String(), nil
}

// IsValid determines whether a string is a validly shaped identifier.
func IsValid(value string) bool {
	return matcher.MatchString(value)
}
