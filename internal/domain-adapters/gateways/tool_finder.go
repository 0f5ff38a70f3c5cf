package gateways

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// ToolFinder locates the host tool programs that get bundled into the
// update package.
type ToolFinder struct {
	toolBase []string
}

// NewToolFinder creates a new tool finder searching the given base
// directories in order.
func NewToolFinder(toolBase []string) *ToolFinder {
	return &ToolFinder{toolBase: toolBase}
}

// Find returns the resolved path of a tool, searching each base
// directory in order.
func (f *ToolFinder) Find(tool string) (string, error) {
	for _, base := range f.toolBase {
		fname := filepath.Join(base, tool)
		if _, err := os.Stat(fname); err == nil {
			resolved, err := filepath.EvalSymlinks(fname)
			if err != nil {
				return fname, nil
			}
			return resolved, nil
		}
	}
	return "", entities.NewPackError(entities.ReasonToolNotFound,
		"cannot find tool program '%s' to bundle", tool)
}

// FindBundled returns the path to bundle for a tool, preferring a
// statically-linked sibling with an "_s" suffix when one exists.
func (f *ToolFinder) FindBundled(tool string) (string, error) {
	fname, err := f.Find(tool)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fname + "_s"); err == nil {
		return fname + "_s", nil
	}
	return fname, nil
}

// EnsureAll fails unless every named tool can be found.
func (f *ToolFinder) EnsureAll(tools []string) error {
	for _, tool := range tools {
		if _, err := f.Find(tool); err != nil {
			return err
		}
	}
	return nil
}

// EnsureCommand fails unless the named command is available on the
// host PATH.
func (f *ToolFinder) EnsureCommand(cmd, pkg string) error {
	if _, err := exec.LookPath(cmd); err != nil {
		return entities.NewPackError(entities.ReasonToolNotFound,
			"you need '%s' (package '%s')", cmd, pkg)
	}
	return nil
}
