package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	sdkhttp "github.com/treeviz/auth-go/sdk/http"
	"github.com/treeviz/auth-go/sdk/id"
)

// DefaultPollInterval is how often the client checks whether the user has
// closed the authorization window.  Closure detection latency is bounded by
// this interval, not instantaneous; there is no environment-independent
// primitive for synchronous close notification.
const DefaultPollInterval = 1 * time.Second

// Client coordinates sign-in flows against the Treeviz identity provider.
// A client is safe for concurrent use: every SignIn call owns its own
// window, verifier, bus subscription and closure poll.
type Client struct {
	config       *Config
	opener       WindowOpener
	bus          MessageBus
	logger       hclog.Logger
	httpClient   *http.Client
	pollInterval time.Duration
	verifiers    VerifierStore
}

// NewClient creates a Client for the given configuration and environment.
// The opener supplies authorization windows and the bus is the shared
// channel the provider's callback page posts results on.
// Supported options: WithLogger, WithHTTPClient, WithPollInterval,
// WithVerifierStore, WithProviderCA
func NewClient(c *Config, opener WindowOpener, bus MessageBus, opt ...Option) (*Client, error) {
	const op = "auth.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: client config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: client config is invalid: %w", op, err)
	}
	if opener == nil {
		return nil, fmt.Errorf("%s: window opener is nil: %w", op, ErrNilParameter)
	}
	if bus == nil {
		return nil, fmt.Errorf("%s: message bus is nil: %w", op, ErrNilParameter)
	}
	opts := getClientOpts(opt...)

	httpClient := opts.withHTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = sdkhttp.NewClient(opts.withProviderCA)
		if err != nil {
			if opts.withProviderCA != "" {
				return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
			}
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	verifiers := opts.withVerifierStore
	if verifiers == nil {
		verifiers = NewTTLVerifierStore(DefaultVerifierTTL)
	}
	return &Client{
		config:       c,
		opener:       opener,
		bus:          bus,
		logger:       logger,
		httpClient:   httpClient,
		pollInterval: opts.withPollInterval,
		verifiers:    verifiers,
	}, nil
}

// SignIn runs one authorization flow: it opens the provider's authorization
// page in a new window and blocks until exactly one terminal event fires: a
// success message, an explicit provider error, the user closing the window,
// or ctx being canceled.  In PKCE mode a successful flow ends with a code
// exchange against the configured exchange endpoint.
//
// Terminal errors can be distinguished with errors.Is: ErrPopupBlocked,
// ErrProviderDenied, ErrCanceled, ErrExchangeFailed, ErrMalformedMessage.
// The window, subscription and closure poll are released before SignIn
// returns, on every path.
func (c *Client) SignIn(ctx context.Context) (*AuthResult, error) {
	const op = "Client.SignIn"
	if ctx == nil {
		ctx = context.Background()
	}

	nonce, err := id.New("req")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate nonce: %w", op, ErrIDGeneratorFailed)
	}

	var verifier *CodeVerifier
	if c.config.UsePKCE {
		verifier, err = NewCodeVerifier()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	authURL, err := c.authURL(nonce, verifier)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	screenWidth, screenHeight := c.opener.ScreenSize()
	g := centeredGeometry(screenWidth, screenHeight, c.config.PopupWidth, c.config.PopupHeight)

	// Nothing is registered before the window exists: when the environment
	// blocks the window there is nothing to tear down.
	window, err := c.opener.Open(ctx, authURL, g)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, ErrPopupBlocked)
	}
	if window == nil {
		return nil, fmt.Errorf("%s: opener returned no window: %w", op, ErrPopupBlocked)
	}

	if verifier != nil {
		c.verifiers.Store(nonce, verifier.Verifier())
	}

	req := &inFlightRequest{
		nonce:    nonce,
		verifier: verifier,
		window:   window,
		ticker:   time.NewTicker(c.pollInterval),
	}
	req.msgCh, req.unsubscribe = c.bus.Subscribe()
	defer func() {
		if err := req.teardown(); err != nil {
			c.logger.Error("sign-in teardown failed", "nonce", nonce, "error", err)
		}
		if verifier != nil {
			c.verifiers.Take(nonce)
		}
	}()

	c.logger.Debug("awaiting authorization", "nonce", nonce, "pkce", c.config.UsePKCE)

	closedSeen := false
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())

		case m := <-req.msgCh:
			if !m.matches(nonce) {
				continue
			}
			// Teardown before anything else: exactly one terminal transition
			// is honored per request, and the subscription and poll must be
			// gone before the exchange starts.
			if err := req.teardown(); err != nil {
				c.logger.Error("sign-in teardown failed", "nonce", nonce, "error", err)
			}
			return c.completeFlow(ctx, req, m)

		case <-req.ticker.C:
			if !window.Closed() {
				continue
			}
			// The provider posts its result and then closes the window, so a
			// tick can observe the closed window while the terminal message
			// is still in the subscription buffer, or still in flight.  A
			// buffered message wins over the closure; an in-flight one gets a
			// one-interval grace before the closure counts as a cancellation.
			if m, ok := drainMatching(req.msgCh, nonce); ok {
				if err := req.teardown(); err != nil {
					c.logger.Error("sign-in teardown failed", "nonce", nonce, "error", err)
				}
				return c.completeFlow(ctx, req, m)
			}
			if closedSeen {
				c.logger.Debug("authorization window closed by user", "nonce", nonce)
				return nil, fmt.Errorf("%s: window closed before authorization completed: %w", op, ErrCanceled)
			}
			closedSeen = true
		}
	}
}

// drainMatching does a non-blocking sweep of ch for a terminal message
// belonging to nonce.
func drainMatching(ch <-chan Message, nonce string) (Message, bool) {
	for {
		select {
		case m := <-ch:
			if m.matches(nonce) {
				return m, true
			}
		default:
			return Message{}, false
		}
	}
}

// completeFlow handles a terminal message after teardown.
func (c *Client) completeFlow(ctx context.Context, req *inFlightRequest, m Message) (*AuthResult, error) {
	const op = "Client.completeFlow"
	if m.Type == MsgTypeError {
		msg := m.Error
		if msg == "" {
			msg = "authorization failed"
		}
		return nil, fmt.Errorf("%s: %s: %w", op, msg, ErrProviderDenied)
	}

	if c.config.UsePKCE {
		if m.Code == "" {
			return nil, fmt.Errorf("%s: success message carries no code: %w", op, ErrMalformedMessage)
		}
		result, err := exchangeWithBackend(ctx, c.httpClient, c.config.ExchangeEndpoint, m.Code, req.verifier.Verifier())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.logger.Debug("sign-in complete", "nonce", req.nonce, "uid", result.UID)
		return result, nil
	}

	if m.Token == "" || m.UID == "" {
		return nil, fmt.Errorf("%s: success message carries no token or uid: %w", op, ErrMalformedMessage)
	}
	c.logger.Debug("sign-in complete", "nonce", req.nonce, "uid", m.UID)
	return &AuthResult{
		Token:       m.Token,
		UID:         m.UID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		PhotoURL:    m.PhotoURL,
	}, nil
}

// authURL builds the provider authorization page URL for one sign-in.
func (c *Client) authURL(nonce string, verifier *CodeVerifier) (string, error) {
	const op = "Client.authURL"
	callbackURI := c.opener.CallbackURI()
	cb, err := url.Parse(callbackURI)
	if err != nil {
		return "", fmt.Errorf("%s: callback uri %s is invalid: %w", op, callbackURI, err)
	}

	q := url.Values{}
	q.Set("appId", c.config.ApplicationID)
	q.Set("origin", cb.Scheme+"://"+cb.Host)
	q.Set("callbackUri", callbackURI)
	q.Set("scope", strings.Join(c.config.Scopes, " "))
	q.Set("nonce", nonce)
	if verifier != nil {
		q.Set("code_challenge", verifier.Challenge())
		q.Set("code_challenge_method", string(verifier.Method()))
	} else {
		// Legacy shared-secret mode.  The secret rides in the URL, which is
		// why this mode is discouraged.
		q.Set("appSecret", string(c.config.ApplicationSecret))
	}
	return c.config.Environment.AuthPageURL() + "?" + q.Encode(), nil
}
