// Package security generates secrets handed out to users, such as
// partnership invite tokens.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// InviteTokenBytes is the amount of entropy in an invite token.
const InviteTokenBytes = 32

var errNonPositiveSize = errors.New("security: token size must be positive")

// TokenGenerator produces unguessable URL-safe tokens.
type TokenGenerator interface {
	NewToken() (string, error)
}

// RandomTokens draws Size bytes from Source (crypto/rand when nil) and
// encodes them as unpadded base64url.
type RandomTokens struct {
	Size   int
	Source io.Reader
}

// NewInviteTokens returns the generator used for partnership invites.
func NewInviteTokens() *RandomTokens {
	return &RandomTokens{Size: InviteTokenBytes}
}

func (g *RandomTokens) NewToken() (string, error) {
	if g.Size <= 0 {
		return "", errNonPositiveSize
	}
	src := g.Source
	if src == nil {
		src = rand.Reader
	}

	buf := make([]byte, g.Size)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("security: reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
