package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the only supported PKCE challenge method: the challenge is the
	// unpadded base64 URL encoding of the SHA-256 digest of the verifier.
	S256 ChallengeMethod = "S256"
)

const (
	// 32 random bytes rendered with base64.RawURLEncoding produce a 43
	// character verifier, which satisfies the 43-128 character requirement of
	// RFC 7636.
	verifierEntropyBytes = 32
	verifierLen          = 43
)

// CodeVerifier represents an OAuth PKCE code verifier (RFC 7636) and its
// derived challenge.  A fresh verifier is generated for every sign-in and is
// never sent anywhere except to the caller's own exchange endpoint.
type CodeVerifier struct {
	verifier  string
	method    ChallengeMethod
	challenge string
}

// NewCodeVerifier creates a new CodeVerifier from a cryptographically secure
// random source.  The challenge is derived eagerly and cached, since S256 is
// a pure function of the verifier.
func NewCodeVerifier() (*CodeVerifier, error) {
	const op = "auth.NewCodeVerifier"
	data := make([]byte, verifierEntropyBytes)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("%s: unable to read random data: %w", op, err)
	}
	v := &CodeVerifier{
		verifier: base64.RawURLEncoding.EncodeToString(data),
		method:   S256,
	}

	var err error
	v.challenge, err = CreateCodeChallenge(v.method, v)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	return v, nil
}

func (v *CodeVerifier) Verifier() string        { return v.verifier }  // Verifier returns the verifier
func (v *CodeVerifier) Challenge() string       { return v.challenge } // Challenge returns the derived challenge
func (v *CodeVerifier) Method() ChallengeMethod { return v.method }    // Method returns the challenge method

// CreateCodeChallenge creates a code challenge from the verifier.  Supported
// ChallengeMethods: S256.
func CreateCodeChallenge(m ChallengeMethod, v *CodeVerifier) (string, error) {
	const op = "auth.CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: code verifier is nil: %w", op, ErrNilParameter)
	}
	// we're not supporting "plain" because it's not recommended by the RFC
	switch m {
	case S256:
		h := sha256.Sum256([]byte(v.verifier))
		return base64.RawURLEncoding.EncodeToString(h[:]), nil
	default:
		return "", fmt.Errorf("%s: %s is invalid: %w", op, m, ErrUnsupportedChallengeMethod)
	}
}
