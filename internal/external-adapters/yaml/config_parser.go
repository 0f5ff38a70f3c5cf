// Package yaml provides YAML-based master configuration parsing and
// repository implementations.
package yaml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// yamlConfig represents the raw YAML structure
type yamlConfig struct {
	ArchiveDir string               `yaml:"archive-dir"`
	Models     map[string]yamlModel `yaml:"models"`
}

type yamlModel struct {
	MainImage        string   `yaml:"main-image"`
	MainRWImage      string   `yaml:"main-rw-image"`
	ECImage          string   `yaml:"ec-image"`
	PDImage          string   `yaml:"pd-image"`
	Script           string   `yaml:"script"`
	BuildMainRWImage bool     `yaml:"build-main-rw-image"`
	StableMain       string   `yaml:"stable-main-version"`
	StableEC         string   `yaml:"stable-ec-version"`
	StablePD         string   `yaml:"stable-pd-version"`
	Extras           []string `yaml:"extras"`
	Tools            []string `yaml:"tools"`
	SignatureKeyring string   `yaml:"signature-keyring"`
	ECDefaultID      string   `yaml:"ec-default-id"`
	PDDefaultID      string   `yaml:"pd-default-id"`
}

// ConfigParser parses YAML master configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a YAML master configuration file
func (p *ConfigParser) ParseFile(filePath string) (*entities.MasterConfig, error) {
	//nolint:gosec // G304: filePath is the configuration path from the CLI
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a MasterConfig entity
func (p *ConfigParser) Parse(data []byte) (*entities.MasterConfig, error) {
	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(yamlCfg.Models) == 0 {
		return nil, fmt.Errorf("configuration must define at least one model")
	}

	models := make(map[string]entities.ModelConfig, len(yamlCfg.Models))
	for name, ym := range yamlCfg.Models {
		if ym.MainImage == "" && ym.ECImage == "" && ym.PDImage == "" {
			return nil, fmt.Errorf("model %s defines no firmware image", name)
		}
		models[name] = convertModel(ym)
	}

	return &entities.MasterConfig{
		ArchiveDir: yamlCfg.ArchiveDir,
		Models:     models,
	}, nil
}

func convertModel(ym yamlModel) entities.ModelConfig {
	return entities.ModelConfig{
		MainImage:        ym.MainImage,
		MainRWImage:      ym.MainRWImage,
		ECImage:          ym.ECImage,
		PDImage:          ym.PDImage,
		Script:           ym.Script,
		BuildMainRWImage: ym.BuildMainRWImage,
		StableMain:       ym.StableMain,
		StableEC:         ym.StableEC,
		StablePD:         ym.StablePD,
		Extras:           ym.Extras,
		Tools:            ym.Tools,
		SignatureKeyring: ym.SignatureKeyring,
		ECDefaultID:      ym.ECDefaultID,
		PDDefaultID:      ym.PDDefaultID,
	}
}
