// auth is a package that provides a client for delegating user login to the
// Treeviz identity provider via the OAuth 2.0 authorization code flow with
// PKCE (RFC 7636).
//
// The flow is driven by an authorization window (a browser popup, a webview,
// or the system browser) and a shared message channel on which the provider's
// callback page posts its result.  The Client coordinates the pieces: it
// generates a fresh code verifier per sign-in, opens the window at the
// provider's authorization page, waits for exactly one terminal event
// (success message, error message, or the user closing the window) and, in
// PKCE mode, exchanges the authorization code for application credentials
// against the caller's own backend endpoint.
//
// Primary types provided by the package:
//
//  * Config: the immutable configuration for a client instance.
//
//  * Client: orchestrates sign-in attempts.  Each SignIn call owns its own
//    window, message subscription and closure poll, so concurrent calls are
//    independent.
//
//  * CodeVerifier: a PKCE verifier/challenge pair generated per sign-in.
//
//  * WindowOpener / Window / MessageBus: the environment the client runs
//    against.  See the loopback sub-package for a production implementation
//    that uses the system browser and a loopback callback listener.
package auth
