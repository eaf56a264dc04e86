// Package backend selects and constructs the storage implementation
// from configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/internal/storage/memory"
	"github.com/oboreham/portfolio-backend/internal/storage/mongodb"
	"github.com/oboreham/portfolio-backend/internal/storage/rest"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// Type defines the type of storage backend
type Type string

const (
	// TypeMemory uses in-memory storage (for testing/development)
	TypeMemory Type = "memory"
	// TypeREST uses the hosted REST datastore (the deployed default)
	TypeREST Type = "rest"
	// TypeMongoDB uses MongoDB storage
	TypeMongoDB Type = "mongodb"
)

// New creates a storage backend based on the configuration
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch Type(cfg.Storage.Type) {
	case TypeMemory:
		return memory.NewStore(), nil

	case TypeREST:
		return rest.NewStore(&cfg.Storage.REST, logger), nil

	case TypeMongoDB:
		store, err := mongodb.NewStore(ctx, &cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create mongodb store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
