package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderConfig holds the OIDC provider settings.
type ProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Validate checks the provider configuration.
func (c *ProviderConfig) Validate() error {
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	hasOpenID := false
	for _, scope := range c.Scopes {
		if scope == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return fmt.Errorf("'openid' scope is required")
	}
	return nil
}

// OIDCProvider verifies identities against an external OpenID Connect
// provider. It is the sole trust boundary: everything past token
// verification is derived from the local subjects table.
type OIDCProvider struct {
	config       ProviderConfig
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDCProvider discovers the provider and prepares the verifier.
func NewOIDCProvider(ctx context.Context, config ProviderConfig) (*OIDCProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OIDC config: %w", err)
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: config.ClientID})

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
	}

	return &OIDCProvider{
		config:       config,
		provider:     provider,
		verifier:     verifier,
		oauth2Config: oauth2Config,
	}, nil
}

// InitiateLogin redirects to the provider's authorization endpoint.
func (p *OIDCProvider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) {
	authURL := p.oauth2Config.AuthCodeURL(state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback exchanges the authorization code and verifies the ID token,
// producing a Claim. Provider-asserted extras land in Claim.Metadata and are
// never consulted for authorization.
func (p *OIDCProvider) HandleCallback(ctx context.Context, r *http.Request) (*Claim, error) {
	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in response")
	}

	return p.VerifyIDToken(ctx, rawIDToken)
}

// VerifyIDToken verifies a raw ID token and extracts the identity claim.
func (p *OIDCProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*Claim, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	claim := &Claim{
		ExternalID: idToken.Subject,
		Metadata:   make(map[string]string),
	}
	for k, v := range claims {
		if str, ok := v.(string); ok {
			claim.Metadata[k] = str
		}
	}
	claim.Email = claim.Metadata["email"]
	claim.FullName = claim.Metadata["name"]

	if claim.ExternalID == "" {
		return nil, fmt.Errorf("missing subject in ID token")
	}
	if claim.Email == "" {
		return nil, fmt.Errorf("missing email in ID token")
	}

	return claim, nil
}
