// Package loopback implements auth.WindowOpener for desktop and CLI
// applications: the authorization "window" is the user's system browser, and
// the provider's redirect lands on a loopback HTTP listener which translates
// it into a message on the client's bus.
package loopback

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/treeviz/auth-go/auth"
)

const callbackPath = "/callback"

// DefaultSuccessHTML is the page shown in the browser tab once the redirect
// has been captured.
const DefaultSuccessHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Signed in</title></head>
<body>
<p>Sign-in complete. You may close this tab and return to the application.</p>
</body>
</html>`

// Opener opens authorization pages in the system browser and captures the
// provider's redirect on a loopback listener.  The listener is bound at
// construction time so the callback URI is known before the first Open.
type Opener struct {
	bus      *auth.Broadcast
	logger   hclog.Logger
	listener net.Listener
	srv      *http.Server
	openURL  func(rawURL string) error
	html     string

	mu      sync.Mutex
	windows map[string]*browserWindow // keyed by sign-in nonce
}

// New creates an Opener publishing captured redirects to bus, and starts its
// loopback listener.  Close must be called to release the listener.
// Supported options: WithLogger, WithListenAddr, WithBrowserCommand,
// WithSuccessHTML
func New(bus *auth.Broadcast, opt ...Option) (*Opener, error) {
	const op = "loopback.New"
	if bus == nil {
		return nil, fmt.Errorf("%s: message bus is nil: %w", op, auth.ErrNilParameter)
	}
	opts := getOpts(opt...)

	listener, err := net.Listen("tcp", opts.withListenAddr)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to bind loopback listener: %w", op, err)
	}

	o := &Opener{
		bus:      bus,
		logger:   opts.withLogger,
		listener: listener,
		openURL:  opts.withBrowserCommand,
		html:     opts.withSuccessHTML,
		windows:  map[string]*browserWindow{},
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	if o.openURL == nil {
		o.openURL = openBrowser
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, o.handleCallback)
	o.srv = &http.Server{Handler: mux}
	go func() {
		if err := o.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			o.logger.Error("loopback listener stopped", "error", err)
		}
	}()
	return o, nil
}

// Close shuts the loopback listener down.
func (o *Opener) Close() error {
	return o.srv.Close()
}

// CallbackURI implements auth.WindowOpener.
func (o *Opener) CallbackURI() string {
	return fmt.Sprintf("http://%s%s", o.listener.Addr(), callbackPath)
}

// ScreenSize implements auth.WindowOpener.  A browser tab has no window
// rect, so there is no screen to report.
func (o *Opener) ScreenSize() (int, int) { return 0, 0 }

// Open implements auth.WindowOpener by launching the system browser.  The
// geometry is ignored for the same reason ScreenSize returns zeros.
func (o *Opener) Open(_ context.Context, rawURL string, _ auth.Geometry) (auth.Window, error) {
	const op = "loopback.Open"
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: authorization url is invalid: %w", op, err)
	}
	nonce := u.Query().Get("nonce")

	w := &browserWindow{}
	o.mu.Lock()
	o.windows[nonce] = w
	o.mu.Unlock()

	if err := o.openURL(rawURL); err != nil {
		o.mu.Lock()
		delete(o.windows, nonce)
		o.mu.Unlock()
		return nil, fmt.Errorf("%s: unable to launch browser: %w", op, err)
	}
	o.logger.Debug("launched browser", "nonce", nonce)
	return w, nil
}

// handleCallback translates the provider's redirect into an auth.Message and
// marks the corresponding window closed.  The message is published before the
// window is marked closed so the client's closure poll can never observe a
// closed window ahead of the result it carries.  The browser tab itself stays
// open showing the success page; the flow no longer depends on it.
func (o *Opener) handleCallback(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	msg := auth.Message{Nonce: q.Get("nonce")}
	if errText := q.Get("error"); errText != "" {
		msg.Type = auth.MsgTypeError
		msg.Error = errText
	} else {
		msg.Type = auth.MsgTypeSuccess
		msg.Code = q.Get("code")
		msg.Token = q.Get("token")
		msg.UID = q.Get("uid")
		msg.Email = q.Get("email")
		msg.DisplayName = q.Get("displayName")
		msg.PhotoURL = q.Get("photoURL")
		if v, err := strconv.Atoi(q.Get("expiresIn")); err == nil {
			msg.ExpiresIn = v
		}
	}

	o.bus.Publish(msg)

	o.mu.Lock()
	if win, ok := o.windows[msg.Nonce]; ok {
		win.markClosed()
		delete(o.windows, msg.Nonce)
	}
	o.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(o.html))
}

// browserWindow tracks the lifecycle of one launched browser tab.  Closed
// flips when the redirect lands or when the flow abandons the tab; the tab
// itself cannot be closed from this process.
type browserWindow struct {
	mu     sync.Mutex
	closed bool
}

func (w *browserWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *browserWindow) Close() error {
	w.markClosed()
	return nil
}

func (w *browserWindow) markClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
