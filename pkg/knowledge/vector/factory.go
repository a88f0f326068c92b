package vector

import (
	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/internal/errors"
)

// NewIndex builds the Index named by cfg.Backend. dsn is only consulted
// for the "postgresql" backend.
func NewIndex(cfg config.VectorDBConfig, dsn string) (Index, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryIndex(), nil
	case "postgresql":
		return NewPostgresIndex(dsn)
	default:
		return nil, errors.New(errors.ErrorTypeValidation, "unsupported vector db backend: "+cfg.Backend)
	}
}
