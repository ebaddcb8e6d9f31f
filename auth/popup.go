package auth

import "context"

// Window is a handle to an open authorization window.  Implementations must
// be concurrently safe: the closure poll reads Closed() from the sign-in
// goroutine while the environment may mark the window closed from another.
type Window interface {
	// Closed reports whether the window has been closed, either by the user
	// or via Close.
	Closed() bool

	// Close closes the window if it is still open.  Closing an already
	// closed window is not an error.
	Close() error
}

// WindowOpener opens the provider's authorization page for the user.  See
// the loopback sub-package for an implementation backed by the system
// browser, and TestOpener for a fake suitable for tests.
type WindowOpener interface {
	// Open navigates a new window to rawURL with the requested geometry.
	// Openers that cannot honor a geometry (a browser tab, for instance)
	// ignore it.  A nil Window with a nil error means the environment
	// refused to open the window (a popup blocker).
	Open(ctx context.Context, rawURL string, g Geometry) (Window, error)

	// CallbackURI is the URI the provider redirects to when the user
	// completes the flow.  It is embedded in the authorization URL.
	CallbackURI() string

	// ScreenSize returns the dimensions of the screen the window will open
	// on, for centering.  Openers without a meaningful screen return zeros.
	ScreenSize() (width, height int)
}

// Geometry is the pixel rectangle of an authorization window.
type Geometry struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// centeredGeometry computes a rect of the configured dimensions centered on
// the given screen.  Offsets never go negative when the window is larger
// than the screen.
func centeredGeometry(screenWidth, screenHeight, width, height int) Geometry {
	left := (screenWidth - width) / 2
	if left < 0 {
		left = 0
	}
	top := (screenHeight - height) / 2
	if top < 0 {
		top = 0
	}
	return Geometry{
		Width:  width,
		Height: height,
		Left:   left,
		Top:    top,
	}
}
