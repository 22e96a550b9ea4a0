// Package middleware wires authentication and request plumbing into the
// HTTP stack: bearer-token verification and subject resolution, request ids,
// structured request logging, and Prometheus instrumentation.
package middleware
