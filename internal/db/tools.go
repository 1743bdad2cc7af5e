//go:build tools

// Package db pins the sqlc generator used to regenerate internal/db/gen.
package db

import (
	_ "github.com/sqlc-dev/sqlc/cmd/sqlc"
)
