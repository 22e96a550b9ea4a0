// Package audit persists an authorization decision trail.
//
// Denial reasons live here and in server logs only; API responses stay
// generic. The audited Evaluator wraps the policy evaluator so services get
// the trail and decision metrics without changing verdicts.
package audit
