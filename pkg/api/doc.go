// Package api provides the HTTP server and handlers for the coworking
// platform. Handlers stay thin: parsing, a subject lookup, a service call,
// and error-to-status translation. Authorization verdicts come from the
// services and the shared evaluator, never from role comparisons in
// handlers.
package api
