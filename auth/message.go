package auth

import "sync"

// Message types posted by the provider's callback page.  Messages carrying
// any other type are unrelated traffic on the shared channel and are
// ignored.
const (
	MsgTypeSuccess = "TREEVIZ_AUTH_SUCCESS"
	MsgTypeError   = "TREEVIZ_AUTH_ERROR"
)

// Message is the payload posted by the provider into the shared message
// channel.  A success message carries either a code (PKCE mode) or a token +
// uid (legacy mode).
type Message struct {
	Type string `json:"type"`

	// PKCE success fields.
	Code      string `json:"code,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`

	// Legacy success fields.
	Token       string `json:"token,omitempty"`
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`

	// Error field.
	Error string `json:"error,omitempty"`

	// Nonce echoes the per-sign-in nonce from the authorization URL, when
	// the provider supports it.  Used to correlate messages with concurrent
	// flows.
	Nonce string `json:"nonce,omitempty"`
}

// terminal reports whether the message carries one of the two recognized
// terminal types.
func (m Message) terminal() bool {
	return m.Type == MsgTypeSuccess || m.Type == MsgTypeError
}

// matches reports whether a terminal message belongs to the flow identified
// by nonce.  Messages without a nonce are accepted, since not every provider
// deployment echoes it.
func (m Message) matches(nonce string) bool {
	if !m.terminal() {
		return false
	}
	return m.Nonce == "" || m.Nonce == nonce
}

// MessageBus is the shared channel authorization messages arrive on.  The
// bus is process-wide and may carry unrelated traffic; subscribers filter by
// message shape.
type MessageBus interface {
	// Subscribe registers a new subscriber and returns its receive channel
	// along with an unsubscribe func.  Unsubscribing must be idempotent.
	Subscribe() (<-chan Message, func())
}

// Broadcast is an in-process MessageBus which fans every published message
// out to all current subscribers.  It is concurrently safe.  A subscriber
// that falls behind its channel buffer misses messages rather than blocking
// the publisher.
type Broadcast struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Message
}

// NewBroadcast creates an empty Broadcast bus.
func NewBroadcast() *Broadcast {
	return &Broadcast{
		subs: map[int]chan Message{},
	}
}

// Subscribe implements MessageBus.
func (b *Broadcast) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Message, 16)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers m to every current subscriber.
func (b *Broadcast) Publish(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

func (b *Broadcast) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
