// Package secrets detects credentials in repository files using the
// Gitleaks rule set, with optional operator allowlists.
package secrets

import "errors"

var (
	// ErrInvalidRegex indicates a regex pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates a TOML file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)
