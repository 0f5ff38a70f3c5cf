// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// ConfigRepository defines the interface for loading the master build
// configuration covering every model of a unified build.
type ConfigRepository interface {
	// LoadConfig loads and validates a master configuration file.
	LoadConfig(ctx context.Context, path string) (*entities.MasterConfig, error)
}
