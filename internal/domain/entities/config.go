package entities

import "sort"

// ModelConfig is one model node of the master build configuration.
// Every field is optional in the configuration file; absent values are
// empty, and MasterConfig.Model is the only lookup path so there are
// no silent defaults scattered through the code.
type ModelConfig struct {
	MainImage        string
	MainRWImage      string
	ECImage          string
	PDImage          string
	Script           string
	BuildMainRWImage bool
	StableMain       string
	StableEC         string
	StablePD         string
	Extras           []string
	Tools            []string
	SignatureKeyring string
	ECDefaultID      string
	PDDefaultID      string
}

// MasterConfig is the device-tree-style master configuration covering
// every model of a unified build.
type MasterConfig struct {
	// ArchiveDir is where bcs:// archive references are resolved from.
	ArchiveDir string
	Models     map[string]ModelConfig
}

// Model returns the configuration node for the named model.
func (c *MasterConfig) Model(name string) (ModelConfig, bool) {
	m, ok := c.Models[name]
	return m, ok
}

// ModelNames returns all configured model names in sorted order so a
// unified build is deterministic regardless of map iteration.
func (c *MasterConfig) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
