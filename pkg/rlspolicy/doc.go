// Package rlspolicy compiles row level security policies from the permission table.
//
// # Overview
//
// The in-process evaluator and the database enforce the same grants because
// both derive from one data source: Compile reads authz.PermissionTable and
// emits CREATE POLICY statements, SyncPolicies applies them at startup, and
// requests run inside transactions carrying SessionClaims that the policies
// read back via current_setting.
//
// # Usage Example
//
//	if err := rlspolicy.RunMigrations(ctx, db); err != nil { ... }
//	if err := rlspolicy.SyncPolicies(ctx, db, table); err != nil { ... }
//
//	claims := rlspolicy.ClaimsFor(subject)
//	err := rlspolicy.WithSessionClaims(ctx, db, claims, func(tx *sql.Tx) error {
//		return tx.QueryRowContext(ctx, query).Scan(&out)
//	})
//
// Claims are set with set_config(..., true) so they are transaction-local
// and never leak across pooled connections.
//
// # Related Packages
//
//   - pkg/authz: the permission table both enforcement layers share
//   - pkg/middleware: derives SessionClaims from the resolved subject
package rlspolicy
