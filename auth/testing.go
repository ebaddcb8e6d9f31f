package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// TestWindow is a Window fake.  Tests mark it closed to simulate the user
// dismissing the authorization window.
type TestWindow struct {
	mu     sync.Mutex
	closed bool

	// CloseErr, when set, is returned by Close.
	CloseErr error
}

// Closed implements Window.
func (w *TestWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close implements Window.
func (w *TestWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.CloseErr != nil {
		return w.CloseErr
	}
	w.closed = true
	return nil
}

// MarkClosed simulates the user closing the window.
func (w *TestWindow) MarkClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// TestOpener is a WindowOpener fake which records every Open call.
type TestOpener struct {
	mu         sync.Mutex
	urls       []string
	geometries []Geometry
	windows    []*TestWindow

	// Blocked simulates a popup blocker: Open returns no window and no
	// error, the way a browser's window.open returns null.
	Blocked bool

	// OpenErr, when set, is returned by Open.
	OpenErr error

	callbackURI  string
	screenWidth  int
	screenHeight int
}

// NewTestOpener creates a TestOpener with a fixed callback URI and a
// 1920x1080 screen.
func NewTestOpener() *TestOpener {
	return &TestOpener{
		callbackURI:  "https://app.example.com/auth/callback",
		screenWidth:  1920,
		screenHeight: 1080,
	}
}

// Open implements WindowOpener.
func (o *TestOpener) Open(_ context.Context, rawURL string, g Geometry) (Window, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	if o.Blocked {
		return nil, nil
	}
	w := &TestWindow{}
	o.urls = append(o.urls, rawURL)
	o.geometries = append(o.geometries, g)
	o.windows = append(o.windows, w)
	return w, nil
}

// CallbackURI implements WindowOpener.
func (o *TestOpener) CallbackURI() string { return o.callbackURI }

// ScreenSize implements WindowOpener.
func (o *TestOpener) ScreenSize() (int, int) { return o.screenWidth, o.screenHeight }

// LastURL returns the URL of the most recent Open call.
func (o *TestOpener) LastURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.urls) == 0 {
		return ""
	}
	return o.urls[len(o.urls)-1]
}

// LastGeometry returns the geometry of the most recent Open call.
func (o *TestOpener) LastGeometry() Geometry {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.geometries) == 0 {
		return Geometry{}
	}
	return o.geometries[len(o.geometries)-1]
}

// LastWindow returns the window of the most recent Open call.
func (o *TestOpener) LastWindow() *TestWindow {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.windows) == 0 {
		return nil
	}
	return o.windows[len(o.windows)-1]
}

// URLs returns a copy of every opened URL, in order.
func (o *TestOpener) URLs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make([]string, len(o.urls))
	copy(cp, o.urls)
	return cp
}

// OpenCount returns the number of Open calls.
func (o *TestOpener) OpenCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.windows)
}

// TestExchangeCapture is one request a TestExchangeServer received.
type TestExchangeCapture struct {
	Code         string
	CodeVerifier string
}

// TestExchangeServer is a disposable caller-backend exchange endpoint for
// tests.  It records every exchange request and replies with a configurable
// status and result payload.
type TestExchangeServer struct {
	httpServer *httptest.Server

	mu         sync.Mutex
	statusCode int
	resultJSON string
	requests   []TestExchangeCapture

	t *testing.T
}

// StartTestExchangeServer creates a running TestExchangeServer which is
// stopped via t.Cleanup.  By default it replies 200 with an empty result
// object.
func StartTestExchangeServer(t *testing.T) *TestExchangeServer {
	t.Helper()
	s := &TestExchangeServer{
		statusCode: http.StatusOK,
		resultJSON: `{"result":{}}`,
		t:          t,
	}
	s.httpServer = httptest.NewServer(s)
	t.Cleanup(s.httpServer.Close)
	return s
}

// URL returns the server's exchange endpoint URL.
func (s *TestExchangeServer) URL() string { return s.httpServer.URL }

// SetResult configures the raw JSON body returned for subsequent requests.
func (s *TestExchangeServer) SetResult(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultJSON = raw
}

// SetStatusCode configures the HTTP status returned for subsequent requests.
func (s *TestExchangeServer) SetStatusCode(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCode = code
}

// Requests returns a copy of every captured exchange request, in order.
func (s *TestExchangeServer) Requests() []TestExchangeCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]TestExchangeCapture, len(s.requests))
	copy(cp, s.requests)
	return cp
}

// ServeHTTP implements http.Handler.
func (s *TestExchangeServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.t.Helper()
	var body exchangeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, TestExchangeCapture{
		Code:         body.Data.Code,
		CodeVerifier: body.Data.CodeVerifier,
	})
	status := s.statusCode
	result := s.resultJSON
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(result))
}
