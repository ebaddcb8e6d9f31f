package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeVerifier(t *testing.T) {
	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewCodeVerifier()
		require.NoError(err)
		assert.Equal(verifierLen, len(got.verifier))
		assert.Equal(S256, got.Method())

		challenge, err := CreateCodeChallenge(S256, got)
		require.NoError(err)
		assert.Equal(challenge, got.Challenge())
	})
	t.Run("length-and-alphabet", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		alphabet := regexp.MustCompile(`^[A-Za-z0-9\-._~]+$`)
		for i := 0; i < 64; i++ {
			got, err := NewCodeVerifier()
			require.NoError(err)
			assert.GreaterOrEqual(len(got.Verifier()), 43)
			assert.LessOrEqual(len(got.Verifier()), 128)
			assert.Regexp(alphabet, got.Verifier())
		}
	})
	t.Run("never-repeats", func(t *testing.T) {
		require := require.New(t)
		seen := map[string]bool{}
		for i := 0; i < 256; i++ {
			got, err := NewCodeVerifier()
			require.NoError(err)
			require.False(seen[got.Verifier()])
			seen[got.Verifier()] = true
		}
	})
}

func TestCreateCodeChallenge(t *testing.T) {
	calcHash := func(data []byte) string {
		h := sha256.New()
		_, _ = h.Write(data)
		sum := h.Sum(nil)
		return base64.RawURLEncoding.EncodeToString(sum)
	}
	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v, err := NewCodeVerifier()
		require.NoError(err)
		challenge, err := CreateCodeChallenge(S256, v)
		require.NoError(err)
		assert.Equal(calcHash([]byte(v.Verifier())), challenge)
	})
	t.Run("deterministic", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v, err := NewCodeVerifier()
		require.NoError(err)
		first, err := CreateCodeChallenge(S256, v)
		require.NoError(err)
		second, err := CreateCodeChallenge(S256, v)
		require.NoError(err)
		assert.Equal(first, second)
	})
	t.Run("distinct-verifiers-distinct-challenges", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v1, err := NewCodeVerifier()
		require.NoError(err)
		v2, err := NewCodeVerifier()
		require.NoError(err)
		assert.NotEqual(v1.Challenge(), v2.Challenge())
	})
	t.Run("invalid-method", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v, err := NewCodeVerifier()
		require.NoError(err)
		challenge, err := CreateCodeChallenge(ChallengeMethod("S512"), v)
		require.Error(err)
		assert.Empty(challenge)
		assert.True(errors.Is(err, ErrUnsupportedChallengeMethod))
	})
	t.Run("nil-verifier", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		challenge, err := CreateCodeChallenge(S256, nil)
		require.Error(err)
		assert.Empty(challenge)
		assert.True(errors.Is(err, ErrNilParameter))
	})
}
