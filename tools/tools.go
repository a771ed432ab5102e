//go:build tools

package tools

// This file tracks tool dependencies for reproducible builds.
// The goose CLI applies ./migrations outside the server: goose -dir migrations postgres "$DATABASE_URL" up

import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
	_ "github.com/pressly/goose/v3/cmd/goose"
)
