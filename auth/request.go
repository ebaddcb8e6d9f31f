package auth

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// inFlightRequest is the mutable state of one SignIn call.  It owns exactly
// one window handle, one bus subscription and one closure-poll ticker, all of
// which are released by teardown on every exit path.  Requests are never
// shared across SignIn calls.
type inFlightRequest struct {
	nonce    string
	verifier *CodeVerifier // nil in legacy mode

	window      Window
	msgCh       <-chan Message
	unsubscribe func()
	ticker      *time.Ticker

	tornDown bool
}

// teardown removes the bus subscription, stops the closure poll and closes
// the window if it is still open.  It is idempotent; only the first call
// does any work.  Errors from closing the window are aggregated and
// returned, but a teardown error never masks the flow's own result.
func (r *inFlightRequest) teardown() error {
	const op = "auth.teardown"
	if r.tornDown {
		return nil
	}
	r.tornDown = true

	var errs *multierror.Error
	if r.ticker != nil {
		r.ticker.Stop()
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.window != nil && !r.window.Closed() {
		if err := r.window.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: unable to close window: %w", op, err))
		}
	}
	return errs.ErrorOrNil()
}
