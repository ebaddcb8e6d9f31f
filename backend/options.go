package backend

import "net/http"

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type requestOptions struct {
	withHTTPClient        *http.Client
	withProviderCA        string
	withTokenEndpoint     string
	withAuthorizeEndpoint string
}

func requestDefaults() requestOptions {
	return requestOptions{}
}

// getRequestOpts gets the defaults and applies the opt overrides passed in.
func getRequestOpts(opt ...Option) requestOptions {
	opts := requestDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithHTTPClient provides an optional http client, overriding the default
// cleanhttp client.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithProviderCA provides an optional CA cert to trust when talking to the
// provider, instead of the system CA chain.
func WithProviderCA(caPEM string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withProviderCA = caPEM
		}
	}
}

// WithTokenEndpoint overrides the token endpoint resolved from the
// environment.  Intended for tests and self-hosted deployments.
func WithTokenEndpoint(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withTokenEndpoint = u
		}
	}
}

// WithAuthorizeEndpoint overrides the authorize endpoint resolved from the
// environment.  Intended for tests and self-hosted deployments.
func WithAuthorizeEndpoint(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*requestOptions); ok {
			o.withAuthorizeEndpoint = u
		}
	}
}
