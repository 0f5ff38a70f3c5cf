package gateways

import (
	"context"
)

// CBFSExtractor pulls a named entry out of a CBFS firmware container
// with cbfstool.
type CBFSExtractor struct {
	runner   *ToolRunner
	toolPath string
}

// NewCBFSExtractor creates a new CBFS extractor
func NewCBFSExtractor(runner *ToolRunner, toolPath string) *CBFSExtractor {
	return &CBFSExtractor{runner: runner, toolPath: toolPath}
}

// ExtractEntry extracts the named entry from the FW_MAIN_A region of
// the container into destPath.
func (e *CBFSExtractor) ExtractEntry(ctx context.Context, containerPath, entryName,
	destPath string) error {
	_, err := e.runner.Run(ctx, RunConfig{
		Args: []string{e.toolPath, containerPath, "extract",
			"-n", entryName, "-f", destPath, "-r", "FW_MAIN_A"},
		Description: "extract container entry " + entryName,
	})
	return err
}
