// Package config loads application configuration from DESKHIVE_* environment
// variables, with validation at startup so misconfiguration fails fast
// instead of surfacing as runtime denials.
package config
