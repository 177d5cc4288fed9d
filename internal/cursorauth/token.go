// Package cursorauth turns a Cursor access token into the session cookie the
// cursor.com web API expects.
package cursorauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is wrapped by every decoding failure.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTokenSegments means the token is not header.payload.signature.
	ErrTokenSegments = fmt.Errorf("%w: expected 3 segments", ErrMalformedToken)
	// ErrTokenPayload means the payload segment did not decode to claims with a sub.
	ErrTokenPayload = fmt.Errorf("%w: invalid payload", ErrMalformedToken)
)

// The signature is never verified; only the claims are read.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

type claims struct {
	Sub *string `json:"sub"`
}

// UserID extracts the user identifier from the token's sub claim. Auth0-style
// subjects ("provider|id") yield the part after the first '|'.
func UserID(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrTokenSegments
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode: %w", ErrTokenPayload, err)
	}

	var c claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return "", fmt.Errorf("%w: parse: %w", ErrTokenPayload, err)
	}
	if c.Sub == nil || *c.Sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrTokenPayload)
	}

	if _, after, found := strings.Cut(*c.Sub, "|"); found {
		return after, nil
	}
	return *c.Sub, nil
}
