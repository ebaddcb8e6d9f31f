package loopback

import "github.com/hashicorp/go-hclog"

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

type options struct {
	withLogger         hclog.Logger
	withListenAddr     string
	withBrowserCommand func(rawURL string) error
	withSuccessHTML    string
}

func defaults() options {
	return options{
		withListenAddr:  "127.0.0.1:0",
		withSuccessHTML: DefaultSuccessHTML,
	}
}

func getOpts(opt ...Option) options {
	opts := defaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for the opener.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withLogger = l
		}
	}
}

// WithListenAddr provides an optional address for the loopback listener.
// The default binds an ephemeral port on 127.0.0.1.
func WithListenAddr(addr string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withListenAddr = addr
		}
	}
}

// WithBrowserCommand overrides how the authorization URL is opened.  Tests
// use this to capture the URL instead of launching a browser.
func WithBrowserCommand(fn func(rawURL string) error) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withBrowserCommand = fn
		}
	}
}

// WithSuccessHTML provides an optional page to show in the browser tab once
// the redirect has been captured.
func WithSuccessHTML(html string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withSuccessHTML = html
		}
	}
}
