package yaml

import (
	"context"
	"fmt"
	"os"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// ConfigRepository implements repositories.ConfigRepository using YAML
// master configuration files.
type ConfigRepository struct {
	parser *ConfigParser
}

// NewConfigRepository creates a new YAML-based configuration repository
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{parser: NewConfigParser()}
}

// LoadConfig loads and validates a master configuration file.
func (r *ConfigRepository) LoadConfig(_ context.Context, path string) (*entities.MasterConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration not found: %s", path)
	}
	return r.parser.ParseFile(path)
}
