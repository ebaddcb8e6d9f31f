package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// TestProvider is a disposable in-process stand-in for the provider's
// backend-to-backend endpoints, which makes writing tests against the
// backend SDK much easier.  It serves both the token and the authorize
// endpoint on one listener.
type TestProvider struct {
	httpServer *httptest.Server

	mu                sync.Mutex
	expectedAppID     string
	expectedAuthCode  string
	expectedChallenge string
	replyAccessToken  string
	replyExpiresIn    int
	replyUser         User
	replyAuthCode     string
	failWithStatus    int

	t *testing.T
}

const (
	testTokenPath     = "/v1/oauth/token"
	testAuthorizePath = "/v1/oauth/authorize"
)

// StartTestProvider creates a running TestProvider which is stopped via
// t.Cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	p := &TestProvider{
		replyAccessToken: "test-access-token",
		replyExpiresIn:   3600,
		replyUser: User{
			UID:         "test-uid",
			Email:       "alice@example.com",
			DisplayName: "alice smith",
		},
		replyAuthCode: "test-auth-code",
		t:             t,
	}
	p.httpServer = httptest.NewServer(p)
	t.Cleanup(p.httpServer.Close)
	return p
}

// TokenEndpoint returns the provider's token endpoint URL.
func (p *TestProvider) TokenEndpoint() string { return p.httpServer.URL + testTokenPath }

// AuthorizeEndpoint returns the provider's authorize endpoint URL.
func (p *TestProvider) AuthorizeEndpoint() string { return p.httpServer.URL + testAuthorizePath }

// SetExpectedExchange configures the app id and auth code required by the
// token endpoint.  Empty values disable the check.
func (p *TestProvider) SetExpectedExchange(appID, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAppID = appID
	p.expectedAuthCode = code
}

// SetExpectedChallenge configures the code challenge required by the
// authorize endpoint.  An empty value disables the check.
func (p *TestProvider) SetExpectedChallenge(challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedChallenge = challenge
}

// SetReplyUser configures the user payload returned by the token endpoint.
func (p *TestProvider) SetReplyUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUser = u
}

// SetReplyAccessToken configures the access token returned by the token
// endpoint.
func (p *TestProvider) SetReplyAccessToken(token string, expiresIn int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyAccessToken = token
	p.replyExpiresIn = expiresIn
}

// SetReplyAuthCode configures the code returned by the authorize endpoint.
func (p *TestProvider) SetReplyAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyAuthCode = code
}

// FailWithStatus makes every subsequent request fail with the given HTTP
// status.  A zero status restores normal behavior.
func (p *TestProvider) FailWithStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWithStatus = status
}

type testEnvelope struct {
	Data map[string]string `json:"data"`
}

// ServeHTTP implements http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if p.failWithStatus != 0 {
		w.WriteHeader(p.failWithStatus)
		_, _ = w.Write([]byte(`{"error":"forced failure"}`))
		return
	}
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var envelope testEnvelope
	if err := json.NewDecoder(req.Body).Decode(&envelope); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch req.URL.Path {
	case testTokenPath:
		if p.expectedAppID != "" && envelope.Data["appId"] != p.expectedAppID {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unknown application"}`))
			return
		}
		if p.expectedAuthCode != "" && envelope.Data["code"] != p.expectedAuthCode {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid code"}`))
			return
		}
		reply := map[string]interface{}{
			"result": TokenExchangeResponse{
				AccessToken: p.replyAccessToken,
				TokenType:   "Bearer",
				ExpiresIn:   p.replyExpiresIn,
				User:        p.replyUser,
			},
		}
		_ = json.NewEncoder(w).Encode(reply)

	case testAuthorizePath:
		if p.expectedChallenge != "" && envelope.Data["codeChallenge"] != p.expectedChallenge {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid challenge"}`))
			return
		}
		reply := map[string]interface{}{
			"result": AuthorizeResponse{
				Code:      p.replyAuthCode,
				ExpiresIn: 300,
			},
		}
		_ = json.NewEncoder(w).Encode(reply)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
