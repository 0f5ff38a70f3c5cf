package gateways

import (
	"context"
)

// FMAPDumper reports a firmware image's section layout by running the
// dump_fmap tool in parsable mode.
type FMAPDumper struct {
	runner   *ToolRunner
	toolPath string
}

// NewFMAPDumper creates a new FMAP dumper running the dump_fmap binary
// at toolPath.
func NewFMAPDumper(runner *ToolRunner, toolPath string) *FMAPDumper {
	return &FMAPDumper{runner: runner, toolPath: toolPath}
}

// DumpLayout returns one "NAME OFFSET SIZE" line per section.
func (d *FMAPDumper) DumpLayout(ctx context.Context, imagePath string) (string, error) {
	result, err := d.runner.Run(ctx, RunConfig{
		Args:        []string{d.toolPath, "-p", imagePath},
		Description: "dump section layout",
	})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}
