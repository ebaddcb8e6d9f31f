package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type exchangeRequest struct {
	Data exchangeRequestData `json:"data"`
}

type exchangeRequestData struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
}

// exchangeResult is the caller-defined payload under the response's result
// envelope.  The token arrives as either "firebaseToken" or "token"
// depending on the exchange endpoint's vintage.
type exchangeResult struct {
	FirebaseToken string `json:"firebaseToken"`
	Token         string `json:"token"`
	User          struct {
		UID         string `json:"uid"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoURL"`
	} `json:"user"`
}

type exchangeEnvelope struct {
	Result *exchangeResult `json:"result"`
}

// exchangeWithBackend trades an authorization code + verifier for
// application credentials against the caller's own endpoint.  Any non-2xx
// status or a response missing the result envelope is a hard failure; there
// are no retries, since the code is single-use and a retry would invalidate
// the flow.
func exchangeWithBackend(ctx context.Context, client *http.Client, endpoint, code, verifier string) (*AuthResult, error) {
	const op = "auth.exchangeWithBackend"
	body, err := json.Marshal(exchangeRequest{
		Data: exchangeRequestData{
			Code:         code,
			CodeVerifier: verifier,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to marshal exchange request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create exchange request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: exchange request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read exchange response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", op, &ExchangeError{StatusCode: resp.StatusCode, Body: string(raw)})
	}

	var envelope exchangeEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Result == nil {
		return nil, fmt.Errorf("%s: response missing result envelope: %w", op, &ExchangeError{StatusCode: resp.StatusCode, Body: string(raw)})
	}

	token := envelope.Result.FirebaseToken
	if token == "" {
		token = envelope.Result.Token
	}
	if token == "" {
		return nil, fmt.Errorf("%s: response missing token: %w", op, &ExchangeError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
	return &AuthResult{
		Token:       token,
		UID:         envelope.Result.User.UID,
		Email:       envelope.Result.User.Email,
		DisplayName: envelope.Result.User.DisplayName,
		PhotoURL:    envelope.Result.User.PhotoURL,
	}, nil
}
