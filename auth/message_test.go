package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_matches(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		m     Message
		nonce string
		want  bool
	}{
		{
			name:  "success-with-matching-nonce",
			m:     Message{Type: MsgTypeSuccess, Code: "abc", Nonce: "n1"},
			nonce: "n1",
			want:  true,
		},
		{
			name:  "success-without-nonce",
			m:     Message{Type: MsgTypeSuccess, Code: "abc"},
			nonce: "n1",
			want:  true,
		},
		{
			name:  "success-with-other-nonce",
			m:     Message{Type: MsgTypeSuccess, Code: "abc", Nonce: "n2"},
			nonce: "n1",
			want:  false,
		},
		{
			name:  "error-type",
			m:     Message{Type: MsgTypeError, Error: "denied"},
			nonce: "n1",
			want:  true,
		},
		{
			name:  "unrelated-traffic",
			m:     Message{Type: "SOME_OTHER_WIDGET_EVENT"},
			nonce: "n1",
			want:  false,
		},
		{
			name:  "missing-type",
			m:     Message{Code: "abc"},
			nonce: "n1",
			want:  false,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.m.matches(tt.nonce))
		})
	}
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	t.Run("fan-out", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		b := NewBroadcast()
		ch1, cancel1 := b.Subscribe()
		ch2, cancel2 := b.Subscribe()
		defer cancel1()
		defer cancel2()

		b.Publish(Message{Type: MsgTypeSuccess, Code: "abc"})

		for _, ch := range []<-chan Message{ch1, ch2} {
			select {
			case m := <-ch:
				require.Equal("abc", m.Code)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for fan-out")
			}
		}
	})
	t.Run("unsubscribe", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		b := NewBroadcast()
		ch, cancel := b.Subscribe()
		cancel()
		cancel() // idempotent

		b.Publish(Message{Type: MsgTypeSuccess, Code: "abc"})
		select {
		case m := <-ch:
			t.Fatalf("received %v after unsubscribe", m)
		case <-time.After(50 * time.Millisecond):
		}
		assert.Equal(0, b.subscriberCount())
	})
	t.Run("slow-subscriber-does-not-block", func(t *testing.T) {
		t.Parallel()
		b := NewBroadcast()
		_, cancel := b.Subscribe()
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 64; i++ {
				b.Publish(Message{Type: MsgTypeSuccess})
			}
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publisher blocked on a slow subscriber")
		}
	})
}
