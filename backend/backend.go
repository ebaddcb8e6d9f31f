package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/treeviz/auth-go/auth"
	sdkhttp "github.com/treeviz/auth-go/sdk/http"
)

// User is the provider's view of the authenticated user.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// ExchangeParams are the inputs for exchanging an authorization code at the
// provider's token endpoint.  Exactly one of CodeVerifier (PKCE) and
// ApplicationSecret (legacy) must be set.
type ExchangeParams struct {
	ApplicationID     string
	Code              string
	CodeVerifier      string
	ApplicationSecret auth.ApplicationSecret
}

func (p ExchangeParams) validate() error {
	const op = "backend.ExchangeParams.validate"
	if p.ApplicationID == "" {
		return fmt.Errorf("%s: application id is empty: %w", op, auth.ErrInvalidParameter)
	}
	if p.Code == "" {
		return fmt.Errorf("%s: authorization code is empty: %w", op, auth.ErrInvalidParameter)
	}
	if (p.CodeVerifier == "") == (p.ApplicationSecret == "") {
		return fmt.Errorf("%s: exactly one of code verifier and application secret must be set: %w", op, auth.ErrInvalidParameter)
	}
	return nil
}

// TokenExchangeResponse is the provider token endpoint's result payload.
type TokenExchangeResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
	User        User   `json:"user"`
}

// OAuth2Token converts the response into an *oauth2.Token so the credentials
// can be plugged into golang.org/x/oauth2 plumbing.
func (r *TokenExchangeResponse) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		Expiry:      time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
	}
}

// AuthorizeParams are the inputs for minting an authorization code at the
// provider's authorize endpoint.
type AuthorizeParams struct {
	ApplicationID       string
	UID                 string
	CodeChallenge       string
	CodeChallengeMethod auth.ChallengeMethod
}

func (p AuthorizeParams) validate() error {
	const op = "backend.AuthorizeParams.validate"
	if p.ApplicationID == "" {
		return fmt.Errorf("%s: application id is empty: %w", op, auth.ErrInvalidParameter)
	}
	if p.UID == "" {
		return fmt.Errorf("%s: uid is empty: %w", op, auth.ErrInvalidParameter)
	}
	if p.CodeChallenge == "" {
		return fmt.Errorf("%s: code challenge is empty: %w", op, auth.ErrInvalidParameter)
	}
	if p.CodeChallengeMethod != auth.S256 {
		return fmt.Errorf("%s: challenge method %s is invalid: %w", op, p.CodeChallengeMethod, auth.ErrUnsupportedChallengeMethod)
	}
	return nil
}

// AuthorizeResponse is the provider authorize endpoint's result payload.
type AuthorizeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresIn"`
}

// ExchangeAuthorizationCode trades an authorization code for tokens at the
// provider's token endpoint.  There are no retries: a code is single-use,
// and the caller may retry with the same code only if no prior call
// consumed it.
// Supported options: WithHTTPClient, WithProviderCA, WithTokenEndpoint
func ExchangeAuthorizationCode(ctx context.Context, p ExchangeParams, env auth.Environment, opt ...Option) (*TokenExchangeResponse, error) {
	const op = "backend.ExchangeAuthorizationCode"
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getRequestOpts(opt...)
	endpoint := opts.withTokenEndpoint
	if endpoint == "" {
		endpoint = env.TokenEndpoint()
	}

	payload := map[string]interface{}{
		"appId":        p.ApplicationID,
		"code":         p.Code,
		"codeVerifier": p.CodeVerifier,
	}
	if p.ApplicationSecret != "" {
		payload["appSecret"] = string(p.ApplicationSecret)
	}

	var result TokenExchangeResponse
	if err := postEnvelope(ctx, opts, endpoint, payload, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// Authorize mints an authorization code for an already-authenticated user.
// This call is made by the provider itself during the flow; it is exposed
// here as an SDK convenience.
// Supported options: WithHTTPClient, WithProviderCA, WithAuthorizeEndpoint
func Authorize(ctx context.Context, p AuthorizeParams, env auth.Environment, opt ...Option) (*AuthorizeResponse, error) {
	const op = "backend.Authorize"
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getRequestOpts(opt...)
	endpoint := opts.withAuthorizeEndpoint
	if endpoint == "" {
		endpoint = env.AuthorizeEndpoint()
	}

	payload := map[string]interface{}{
		"appId":               p.ApplicationID,
		"uid":                 p.UID,
		"codeChallenge":       p.CodeChallenge,
		"codeChallengeMethod": string(p.CodeChallengeMethod),
	}

	var result AuthorizeResponse
	if err := postEnvelope(ctx, opts, endpoint, payload, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// postEnvelope POSTs {data: payload} to endpoint and decodes the response's
// result envelope into out.  A non-2xx status or a missing envelope is a
// hard failure reported as an auth.ExchangeError.
func postEnvelope(ctx context.Context, opts requestOptions, endpoint string, payload interface{}, out interface{}) error {
	const op = "backend.postEnvelope"
	client := opts.withHTTPClient
	if client == nil {
		var err error
		client, err = sdkhttp.NewClient(opts.withProviderCA)
		if err != nil {
			return fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}

	body, err := json.Marshal(map[string]interface{}{"data": payload})
	if err != nil {
		return fmt.Errorf("%s: unable to marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: unable to read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", op, &auth.ExchangeError{StatusCode: resp.StatusCode, Body: string(raw)})
	}

	envelope := struct {
		Result json.RawMessage `json:"result"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Result == nil {
		return fmt.Errorf("%s: response missing result envelope: %w", op, &auth.ExchangeError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: unable to decode result: %w", op, &auth.ExchangeError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
	return nil
}
