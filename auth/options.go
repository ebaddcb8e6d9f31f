package auth

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// configOptions is the set of available options for NewConfig
type configOptions struct {
	withScopes           []string
	withExchangeEndpoint string
	withLegacySecret     ApplicationSecret
	withPopupWidth       int
	withPopupHeight      int
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withScopes:      DefaultScopes(),
		withPopupWidth:  DefaultPopupWidth,
		withPopupHeight: DefaultPopupHeight,
	}
}

// getConfigOpts gets the config defaults and applies the opt overrides
// passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes to request of the provider,
// replacing the defaults.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithExchangeEndpoint provides the URL of the caller's backend endpoint
// which trades an authorization code + verifier for application credentials.
// Required for PKCE mode.
func WithExchangeEndpoint(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withExchangeEndpoint = u
		}
	}
}

// WithLegacySecret selects the legacy shared-secret mode instead of PKCE.
//
// Deprecated: the secret is embedded in the authorization URL, which is
// explicitly weaker than PKCE.  New integrations should use
// WithExchangeEndpoint.
func WithLegacySecret(s ApplicationSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLegacySecret = s
		}
	}
}

// WithPopupSize provides optional pixel dimensions for the authorization
// window.
func WithPopupSize(width, height int) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPopupWidth = width
			o.withPopupHeight = height
		}
	}
}

// clientOptions is the set of available options for NewClient
type clientOptions struct {
	withLogger        hclog.Logger
	withHTTPClient    *http.Client
	withPollInterval  time.Duration
	withVerifierStore VerifierStore
	withProviderCA    string
}

func clientDefaults() clientOptions {
	return clientOptions{
		withPollInterval: DefaultPollInterval,
	}
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for the client.  When none is
// provided the client is silent.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client for the code exchange,
// overriding the default cleanhttp client.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithPollInterval provides an optional interval for the window closure
// poll.  Closure detection latency is bounded by this interval.
func WithPollInterval(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withPollInterval = d
		}
	}
}

// WithVerifierStore provides an optional store used to stash the code
// verifier, keyed by the sign-in nonce, while a flow is in flight.
func WithVerifierStore(s VerifierStore) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withVerifierStore = s
		}
	}
}

// WithProviderCA provides an optional CA cert to trust when talking to the
// exchange endpoint, instead of the system CA chain.
func WithProviderCA(caPEM string) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withProviderCA = caPEM
		}
	}
}
