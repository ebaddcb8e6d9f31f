package auth

// Environment selects the set of fixed Treeviz base URLs the client talks
// to.  Unknown values are rejected by Config.Validate, never at resolution
// time.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

const (
	productionAuthBase  = "https://auth.treeviz.io"
	developmentAuthBase = "https://auth.dev.treeviz.io"

	productionAPIBase  = "https://api.treeviz.io"
	developmentAPIBase = "https://api.dev.treeviz.io"

	// authPagePath is where the authorization UI lives relative to the auth
	// base URL.
	authPagePath = "/auth/popup"

	tokenPath     = "/v1/oauth/token"
	authorizePath = "/v1/oauth/authorize"
)

func (e Environment) valid() bool {
	switch e {
	case Production, Development:
		return true
	}
	return false
}

// AuthBaseURL returns the base URL of the provider's authorization UI.
func (e Environment) AuthBaseURL() string {
	if e == Development {
		return developmentAuthBase
	}
	return productionAuthBase
}

// AuthPageURL returns the full URL of the provider's authorization page,
// without query parameters.
func (e Environment) AuthPageURL() string {
	return e.AuthBaseURL() + authPagePath
}

// TokenEndpoint returns the provider's backend-to-backend token endpoint.
func (e Environment) TokenEndpoint() string {
	if e == Development {
		return developmentAPIBase + tokenPath
	}
	return productionAPIBase + tokenPath
}

// AuthorizeEndpoint returns the provider's backend-to-backend authorize
// endpoint.
func (e Environment) AuthorizeEndpoint() string {
	if e == Development {
		return developmentAPIBase + authorizePath
	}
	return productionAPIBase + authorizePath
}
