package auth

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultVerifierTTL bounds how long a stashed verifier outlives the
// sign-in that created it.
const DefaultVerifierTTL = 10 * time.Minute

// VerifierStore stashes code verifiers, keyed by the sign-in nonce, while a
// flow is in flight.  The client holds the verifier in memory regardless;
// the store exists for resilience and is not required for correctness.
// Implementations must be concurrently safe.
type VerifierStore interface {
	// Store stashes a verifier under nonce.
	Store(nonce, verifier string)

	// Take removes and returns the verifier stashed under nonce.
	Take(nonce string) (string, bool)
}

type ttlStore struct {
	// mu makes Take's get+delete atomic; the cache alone only guarantees
	// each operation individually, so concurrent Takes for the same nonce
	// could otherwise both receive the verifier.
	mu sync.Mutex
	c  *gocache.Cache
}

// NewTTLVerifierStore creates an in-memory VerifierStore whose entries
// expire after ttl.  A non-positive ttl selects DefaultVerifierTTL.
func NewTTLVerifierStore(ttl time.Duration) VerifierStore {
	if ttl <= 0 {
		ttl = DefaultVerifierTTL
	}
	return &ttlStore{c: gocache.New(ttl, time.Minute)}
}

func (s *ttlStore) Store(nonce, verifier string) {
	s.c.Set(nonce, verifier, gocache.DefaultExpiration)
}

func (s *ttlStore) Take(nonce string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(nonce)
	if !ok {
		return "", false
	}
	s.c.Delete(nonce)
	return v.(string), true
}
