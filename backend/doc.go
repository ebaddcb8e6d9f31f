// backend is the server-side Treeviz SDK.  It talks directly to the
// provider's backend-to-backend endpoints: exchanging an authorization code
// for tokens (the operation a caller's exchange endpoint performs on behalf
// of the browser client) and minting authorization codes (a convenience for
// the provider itself).
package backend
