package loopback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeviz/auth-go/auth"
)

// capturedBrowser records launched URLs instead of spawning a real browser.
type capturedBrowser struct {
	urls []string
	err  error
}

func (b *capturedBrowser) open(rawURL string) error {
	if b.err != nil {
		return b.err
	}
	b.urls = append(b.urls, rawURL)
	return nil
}

func testOpener(t *testing.T, bus *auth.Broadcast, browser *capturedBrowser, opt ...Option) *Opener {
	t.Helper()
	opt = append([]Option{WithBrowserCommand(browser.open)}, opt...)
	o, err := New(bus, opt...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("nil-bus", func(t *testing.T) {
		t.Parallel()
		o, err := New(nil)
		require.Error(t, err)
		assert.Nil(t, o)
		assert.True(t, errors.Is(err, auth.ErrNilParameter))
	})
	t.Run("callback-uri-known-before-open", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		o := testOpener(t, auth.NewBroadcast(), &capturedBrowser{})

		u, err := url.Parse(o.CallbackURI())
		require.NoError(err)
		assert.Equal("http", u.Scheme)
		assert.Equal("/callback", u.Path)
		assert.True(strings.HasPrefix(u.Host, "127.0.0.1:"))
	})
}

func TestOpener_Open(t *testing.T) {
	t.Parallel()
	t.Run("launches-browser-with-url", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		browser := &capturedBrowser{}
		o := testOpener(t, auth.NewBroadcast(), browser)

		w, err := o.Open(context.Background(), "https://auth.example.com/auth/popup?nonce=n-1", auth.Geometry{})
		require.NoError(err)
		require.NotNil(w)
		require.Len(browser.urls, 1)
		assert.Equal("https://auth.example.com/auth/popup?nonce=n-1", browser.urls[0])
		assert.False(w.Closed())
	})
	t.Run("browser-launch-failure", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		browser := &capturedBrowser{err: errors.New("exec: \"xdg-open\": executable file not found")}
		o := testOpener(t, auth.NewBroadcast(), browser)

		w, err := o.Open(context.Background(), "https://auth.example.com/auth/popup?nonce=n-1", auth.Geometry{})
		require.Error(err)
		assert.Nil(w)
		assert.Contains(err.Error(), "unable to launch browser")
	})
}

func TestOpener_Callback(t *testing.T) {
	t.Parallel()
	t.Run("success-redirect", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		bus := auth.NewBroadcast()
		o := testOpener(t, bus, &capturedBrowser{})

		w, err := o.Open(context.Background(), "https://auth.example.com/auth/popup?nonce=n-1", auth.Geometry{})
		require.NoError(err)
		msgCh, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		resp, err := http.Get(o.CallbackURI() + "?nonce=n-1&code=abc&expiresIn=300")
		require.NoError(err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(err)
		assert.Equal(http.StatusOK, resp.StatusCode)
		assert.Contains(string(body), "Sign-in complete")

		select {
		case m := <-msgCh:
			assert.Equal(auth.MsgTypeSuccess, m.Type)
			assert.Equal("abc", m.Code)
			assert.Equal("n-1", m.Nonce)
			assert.Equal(300, m.ExpiresIn)
		case <-time.After(2 * time.Second):
			t.Fatal("no message published for the captured redirect")
		}
		assert.True(w.Closed())
	})
	t.Run("error-redirect", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		bus := auth.NewBroadcast()
		o := testOpener(t, bus, &capturedBrowser{})

		_, err := o.Open(context.Background(), "https://auth.example.com/auth/popup?nonce=n-2", auth.Geometry{})
		require.NoError(err)
		msgCh, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		resp, err := http.Get(o.CallbackURI() + "?nonce=n-2&error=access_denied")
		require.NoError(err)
		resp.Body.Close()

		select {
		case m := <-msgCh:
			assert.Equal(auth.MsgTypeError, m.Type)
			assert.Equal("access_denied", m.Error)
			assert.Equal("n-2", m.Nonce)
		case <-time.After(2 * time.Second):
			t.Fatal("no message published for the captured redirect")
		}
	})
	t.Run("legacy-redirect-carries-profile", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		bus := auth.NewBroadcast()
		o := testOpener(t, bus, &capturedBrowser{})

		_, err := o.Open(context.Background(), "https://auth.example.com/auth/popup?nonce=n-3", auth.Geometry{})
		require.NoError(err)
		msgCh, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		q := url.Values{}
		q.Set("nonce", "n-3")
		q.Set("token", "tok")
		q.Set("uid", "uid-1")
		q.Set("email", "alice@example.com")
		q.Set("displayName", "alice smith")
		resp, err := http.Get(o.CallbackURI() + "?" + q.Encode())
		require.NoError(err)
		resp.Body.Close()

		select {
		case m := <-msgCh:
			assert.Equal(auth.MsgTypeSuccess, m.Type)
			assert.Equal("tok", m.Token)
			assert.Equal("uid-1", m.UID)
			assert.Equal("alice@example.com", m.Email)
			assert.Equal("alice smith", m.DisplayName)
		case <-time.After(2 * time.Second):
			t.Fatal("no message published for the captured redirect")
		}
	})
	t.Run("custom-success-html", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		bus := auth.NewBroadcast()
		o := testOpener(t, bus, &capturedBrowser{}, WithSuccessHTML("<html><body>done!</body></html>"))

		resp, err := http.Get(o.CallbackURI() + "?nonce=none&code=abc")
		require.NoError(err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(err)
		assert.Equal("<html><body>done!</body></html>", string(body))
	})
}

// The loopback opener plugged into an auth.Client end to end: the "browser"
// is a goroutine which follows the authorization URL's callbackUri with a
// code, the way the provider's popup page would redirect.
func TestOpener_SignInRoundTrip(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	srv := auth.StartTestExchangeServer(t)
	srv.SetResult(`{"result":{"firebaseToken":"T","user":{"uid":"U"}}}`)

	bus := auth.NewBroadcast()
	followRedirect := func(rawURL string) error {
		go func() {
			u, err := url.Parse(rawURL)
			if err != nil {
				return
			}
			q := u.Query()
			cb := fmt.Sprintf("%s?nonce=%s&code=abc", q.Get("callbackUri"), url.QueryEscape(q.Get("nonce")))
			resp, err := http.Get(cb)
			if err != nil {
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
	o, err := New(bus, WithBrowserCommand(followRedirect))
	require.NoError(err)
	t.Cleanup(func() { _ = o.Close() })

	config, err := auth.NewConfig(auth.Production, "app-123", auth.WithExchangeEndpoint(srv.URL()))
	require.NoError(err)
	client, err := auth.NewClient(config, o, bus)
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := client.SignIn(ctx)
	require.NoError(err)
	assert.Equal("T", got.Token)
	assert.Equal("U", got.UID)

	reqs := srv.Requests()
	require.Len(reqs, 1)
	assert.Equal("abc", reqs[0].Code)
}

// The callback handler publishes the result before marking the window
// closed, so even an aggressive closure poll never observes the closed
// window ahead of the message it carries.
func TestOpener_SignInRoundTrip_FastPoll(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	srv := auth.StartTestExchangeServer(t)
	srv.SetResult(`{"result":{"firebaseToken":"T","user":{"uid":"U"}}}`)

	bus := auth.NewBroadcast()
	followRedirect := func(rawURL string) error {
		go func() {
			u, err := url.Parse(rawURL)
			if err != nil {
				return
			}
			q := u.Query()
			cb := fmt.Sprintf("%s?nonce=%s&code=abc", q.Get("callbackUri"), url.QueryEscape(q.Get("nonce")))
			resp, err := http.Get(cb)
			if err != nil {
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
	o, err := New(bus, WithBrowserCommand(followRedirect))
	require.NoError(err)
	t.Cleanup(func() { _ = o.Close() })

	config, err := auth.NewConfig(auth.Production, "app-123", auth.WithExchangeEndpoint(srv.URL()))
	require.NoError(err)
	client, err := auth.NewClient(config, o, bus, auth.WithPollInterval(time.Millisecond))
	require.NoError(err)

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		got, err := client.SignIn(ctx)
		cancel()
		require.NoErrorf(err, "flow %d rejected", i)
		assert.Equal("T", got.Token)
	}
}
