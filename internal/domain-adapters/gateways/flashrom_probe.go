package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
)

// FlashromProber identifies the bundled flashrom binary for the VERSION
// manifest: its content fingerprint, its file type, and the build
// timestamp string compiled into it.
type FlashromProber struct {
	runner *ToolRunner
	hasher *checksumCalculator
}

// NewFlashromProber creates a new flashrom prober
func NewFlashromProber(runner *ToolRunner) *FlashromProber {
	return &FlashromProber{runner: runner, hasher: NewChecksumCalculator()}
}

// Probe returns the flashrom(8) manifest block for the binary at path.
// flashrom compiles its build timestamp into the binary as a printable
// string ending in "UTC"; the probe scans back from that terminator to
// recover the full version string.
func (p *FlashromProber) Probe(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read flashrom binary %s: %w", path, err)
	}

	version := findVersionString(data)
	hash := p.hasher.CalculateBytes(data)

	result, err := p.runner.Run(ctx, RunConfig{
		Args:        []string{"file", "-b", path},
		Description: "identify flashrom binary",
	})
	if err != nil {
		return "", err
	}
	fileType := strings.TrimSpace(result.Stdout)

	return fmt.Sprintf("flashrom(8): %s *%s\n             %s\n             %s\n",
		hash, path, fileType, version), nil
}

// findVersionString locates the printable string ending in "UTC\0".
func findVersionString(data []byte) string {
	end := bytes.Index(data, []byte("UTC\x00"))
	if end < 0 {
		return ""
	}
	pos := end
	for pos > 0 && data[pos-1] >= ' ' && data[pos-1] < 0x7f {
		pos--
	}
	return string(data[pos : end+3])
}
