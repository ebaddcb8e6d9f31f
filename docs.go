// treeviz provides a collection of related packages which enable signing in
// to the Treeviz identity provider with the OAuth 2.0 Authorization Code Flow
// with PKCE, along with a backend SDK for the provider's server-to-server
// endpoints.
//
// See README.md
package treeviz
