// Package storage persists the server list and settings.
package storage

import (
	"fmt"

	"mcwatch/internal/domain"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendYAML     = "yaml"
)

// Open returns the repository for backend. location is a file path for
// sqlite and yaml, and a DSN for postgres.
func Open(backend, location string) (domain.Repository, error) {
	switch backend {
	case "", BackendSQLite:
		return NewSQLiteStore(location)
	case BackendPostgres, "postgresql":
		return NewPostgresStore(location)
	case BackendYAML:
		return NewYAMLStore(location)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
