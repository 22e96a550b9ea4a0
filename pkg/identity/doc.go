// Package identity resolves verified OIDC identities to local subjects.
//
// # Overview
//
// Identity providers prove WHO a caller is; this package decides what record
// they map to. Role and tenant assignment are always re-read from the
// subjects table keyed by the verified external id. Nothing a provider
// asserts in token claims or metadata influences authorization.
//
// # Usage Example
//
//	provider, err := identity.NewOIDCProvider(ctx, cfg)
//	claim, err := provider.HandleCallback(ctx, code)
//	record, err := resolver.Resolve(ctx, claim)
//	subject := record.Subject()
//
// First sign-in provisions a subject as an unassigned END_USER; invitations
// and admin role changes move them from there.
//
// # Related Packages
//
//   - pkg/authz: consumes the resolved Subject for every decision
//   - pkg/invites: assigns role and tenant on invitation accept
package identity
