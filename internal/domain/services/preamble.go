package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sglass68/firmware/internal/domain/entities"
	"github.com/sglass68/firmware/internal/domain/interfaces/gateways"
)

// Bit 0 of the signed preamble flags distinguishes RO-normal firmware
// (bit set) from RW firmware (bit clear).
const roNormalFlag = 1

const preambleFlagsMarker = "Preamble flags:"

// PreambleFlagState reads and toggles the RO/RW indicator bit of a
// firmware image's signed preamble. Reading delegates to an external
// signature verifier; toggling delegates to an external re-signing
// operation.
type PreambleFlagState struct {
	verifier gateways.SignatureVerifier
	resigner gateways.Resigner
}

// NewPreambleFlagState creates a new preamble flag state
func NewPreambleFlagState(verifier gateways.SignatureVerifier, resigner gateways.Resigner) *PreambleFlagState {
	return &PreambleFlagState{verifier: verifier, resigner: resigner}
}

// GetFlags returns the preamble flag value of the image. The verifier
// report must contain exactly one "Preamble flags:" line with the
// integer value at end of line.
func (p *PreambleFlagState) GetFlags(ctx context.Context, imagePath string) (uint32, error) {
	report, err := p.verifier.VerifyFirmware(ctx, imagePath)
	if err != nil {
		return 0, fmt.Errorf("signature verify of %s: %w", imagePath, err)
	}
	var flagLines []string
	for _, line := range strings.Split(report, "\n") {
		if strings.Contains(line, preambleFlagsMarker) {
			flagLines = append(flagLines, line)
		}
	}
	if len(flagLines) != 1 {
		return 0, entities.NewPackError(entities.ReasonFlagRead,
			"verifier reported %d preamble flags lines for %s, want 1",
			len(flagLines), imagePath)
	}
	fields := strings.Fields(flagLines[0])
	value, err := strconv.ParseUint(fields[len(fields)-1], 10, 32)
	if err != nil {
		return 0, entities.WrapPackError(entities.ReasonFlagRead, err,
			"unparseable preamble flags line %q for %s", flagLines[0], imagePath)
	}
	return uint32(value), nil
}

// CreateRWFromRO produces an RW firmware image from an RO-normal one by
// re-signing with the RO-normal bit cleared. The RO image's
// modification timestamp is copied onto the result so repeated builds
// are reproducible.
func (p *PreambleFlagState) CreateRWFromRO(ctx context.Context, roPath, rwPath string) error {
	flags, err := p.GetFlags(ctx, roPath)
	if err != nil {
		return err
	}
	if flags&roNormalFlag == 0 {
		return entities.NewPackError(entities.ReasonNotReadOnlyFirmware,
			"firmware image %s is not RO_NORMAL firmware", roPath)
	}
	if err := p.resigner.Resign(ctx, roPath, rwPath, flags^roNormalFlag); err != nil {
		return fmt.Errorf("re-sign %s: %w", roPath, err)
	}
	return copyModTime(roPath, rwPath)
}

// AssertIsRW fails unless the image's RO-normal bit is clear.
func (p *PreambleFlagState) AssertIsRW(ctx context.Context, imagePath string) error {
	flags, err := p.GetFlags(ctx, imagePath)
	if err != nil {
		return err
	}
	if flags&roNormalFlag != 0 {
		return entities.NewPackError(entities.ReasonNotReadWriteFirmware,
			"firmware image %s is not RW firmware", imagePath)
	}
	return nil
}

// copyModTime copies src's modification timestamp onto dst.
func copyModTime(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set timestamp of %s: %w", dst, err)
	}
	return nil
}
