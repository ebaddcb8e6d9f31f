package auth

// AuthResult is the normalized outcome of a successful sign-in, sourced from
// the backend-exchange response in PKCE mode or directly from the provider's
// message in legacy mode.  Optional fields are empty when the provider has
// no value for them.
type AuthResult struct {
	Token       string `json:"token"`
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}
