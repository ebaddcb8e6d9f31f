package auth

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/treeviz/auth-go/internal/strutils"
)

// ApplicationSecret is the legacy shared secret for an application.
type ApplicationSecret string

// RedactedApplicationSecret is the redacted string or json for an
// application secret.
const RedactedApplicationSecret = "[REDACTED: application secret]"

// String will redact the application secret.
func (s ApplicationSecret) String() string {
	return RedactedApplicationSecret
}

// MarshalJSON will redact the application secret.
func (s ApplicationSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedApplicationSecret)
}

const (
	DefaultPopupWidth  = 480
	DefaultPopupHeight = 640
)

// DefaultScopes returns the scopes requested when the caller provides none.
func DefaultScopes() []string {
	return []string{"profile", "email"}
}

// Config represents the configuration for a Client.  It is immutable for the
// lifetime of one client instance.
type Config struct {
	// Environment selects the provider's base URLs.
	Environment Environment

	// ApplicationID is the opaque id of the caller's registered application.
	ApplicationID string

	// Scopes is the ordered list of requested permission names.
	Scopes []string

	// UsePKCE selects PKCE (true) vs the legacy shared-secret mode.
	UsePKCE bool

	// ApplicationSecret is the legacy shared secret; required iff UsePKCE is
	// false.
	ApplicationSecret ApplicationSecret

	// ExchangeEndpoint is the URL of the caller's backend endpoint which
	// trades a code + verifier for application credentials; required iff
	// UsePKCE is true.
	ExchangeEndpoint string

	// PopupWidth and PopupHeight are the pixel dimensions of the
	// authorization window.
	PopupWidth  int
	PopupHeight int
}

// NewConfig composes a new client config.
// Supported options: WithScopes, WithExchangeEndpoint, WithLegacySecret,
// WithPopupSize
func NewConfig(env Environment, applicationID string, opt ...Option) (*Config, error) {
	const op = "auth.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Environment:       env,
		ApplicationID:     applicationID,
		Scopes:            strutils.RemoveDuplicatesStable(opts.withScopes, false),
		UsePKCE:           opts.withLegacySecret == "",
		ApplicationSecret: opts.withLegacySecret,
		ExchangeEndpoint:  opts.withExchangeEndpoint,
		PopupWidth:        opts.withPopupWidth,
		PopupHeight:       opts.withPopupHeight,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	return c, nil
}

// Validate the client configuration.  Exactly one of ExchangeEndpoint and
// ApplicationSecret must be set, as determined by UsePKCE.
func (c *Config) Validate() error {
	const op = "auth.Validate"
	if c == nil {
		return fmt.Errorf("%s: client config is nil: %w", op, ErrNilParameter)
	}
	if !c.Environment.valid() {
		return fmt.Errorf("%s: unknown environment %q: %w", op, c.Environment, ErrInvalidParameter)
	}
	if c.ApplicationID == "" {
		return fmt.Errorf("%s: application id is empty: %w", op, ErrInvalidParameter)
	}
	if c.PopupWidth <= 0 || c.PopupHeight <= 0 {
		return fmt.Errorf("%s: popup dimensions %dx%d are not positive: %w", op, c.PopupWidth, c.PopupHeight, ErrInvalidParameter)
	}
	switch {
	case c.UsePKCE:
		if c.ApplicationSecret != "" {
			return fmt.Errorf("%s: application secret is set but PKCE is enabled: %w", op, ErrInvalidParameter)
		}
		if c.ExchangeEndpoint == "" {
			return fmt.Errorf("%s: exchange endpoint is empty: %w", op, ErrInvalidParameter)
		}
		u, err := url.Parse(c.ExchangeEndpoint)
		if err != nil {
			return fmt.Errorf("%s: exchange endpoint %s is invalid: %w", op, c.ExchangeEndpoint, err)
		}
		if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
			return fmt.Errorf("%s: exchange endpoint %s scheme is not http or https: %w", op, c.ExchangeEndpoint, ErrInvalidParameter)
		}
	default:
		if c.ExchangeEndpoint != "" {
			return fmt.Errorf("%s: exchange endpoint is set but PKCE is disabled: %w", op, ErrInvalidParameter)
		}
		if c.ApplicationSecret == "" {
			return fmt.Errorf("%s: application secret is empty: %w", op, ErrInvalidParameter)
		}
	}
	return nil
}
