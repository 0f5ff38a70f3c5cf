package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Verified-boot developer key files used when re-signing.
const devKeyDir = "/usr/share/vboot/devkeys"

// VbootGateway drives the verified-boot tool chain: extracting the GBB
// root key, verifying the firmware body signature, and re-signing an
// image with new preamble flags. Each operation runs in its own
// scratch directory since the tools drop section files where they run.
type VbootGateway struct {
	runner       *ToolRunner
	dumpFmapPath string
	gbbPath      string
	vbutilPath   string
	resignScript string
}

// NewVbootGateway creates a new vboot gateway. The tool paths are
// resolved by the tool finder before the gateway is constructed.
func NewVbootGateway(runner *ToolRunner, dumpFmapPath, gbbPath, vbutilPath,
	resignScript string) *VbootGateway {
	return &VbootGateway{
		runner:       runner,
		dumpFmapPath: dumpFmapPath,
		gbbPath:      gbbPath,
		vbutilPath:   vbutilPath,
		resignScript: resignScript,
	}
}

// VerifyFirmware verifies the image's VBLOCK_A signature against the
// root key from its GBB and returns the verifier report. The chain
// matches the stock firmware signing flow: dump_fmap extracts the
// sections, gbb_utility pulls the root key, vbutil_firmware verifies.
func (g *VbootGateway) VerifyFirmware(ctx context.Context, imagePath string) (string, error) {
	scratch, err := os.MkdirTemp("", "vboot-verify-")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	if _, err := g.runner.Run(ctx, RunConfig{
		Args:        []string{g.dumpFmapPath, "-x", imagePath},
		WorkingDir:  scratch,
		Description: "extract firmware sections",
	}); err != nil {
		return "", err
	}
	if _, err := g.runner.Run(ctx, RunConfig{
		Args:        []string{g.gbbPath, "--rootkey=rootkey.bin", "GBB"},
		WorkingDir:  scratch,
		Description: "extract GBB root key",
	}); err != nil {
		return "", err
	}
	result, err := g.runner.Run(ctx, RunConfig{
		Args: []string{g.vbutilPath, "--verify", "VBLOCK_A",
			"--signpubkey", "rootkey.bin", "--fv", "FW_MAIN_A"},
		WorkingDir:  scratch,
		Description: "verify firmware signature",
	})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// Resign re-signs the image with the developer keys and the given
// preamble flags, writing the result to outPath.
func (g *VbootGateway) Resign(ctx context.Context, inPath, outPath string, flags uint32) error {
	_, err := g.runner.Run(ctx, RunConfig{
		Args: []string{g.resignScript, inPath, outPath,
			filepath.Join(devKeyDir, "firmware_data_key.vbprivk"),
			filepath.Join(devKeyDir, "firmware.keyblock"),
			filepath.Join(devKeyDir, "dev_firmware_data_key.vbprivk"),
			filepath.Join(devKeyDir, "dev_firmware.keyblock"),
			filepath.Join(devKeyDir, "kernel_subkey.vbpubk"),
			strconv.FormatUint(uint64(flags), 10)},
		Description: "re-sign firmware",
	})
	return err
}
