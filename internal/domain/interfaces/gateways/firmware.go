// Package gateways defines contracts for the external firmware tools
// the assembly engine delegates to.
package gateways

import "context"

// LayoutDumper reports the internal section layout of a firmware image
// as text, one "NAME OFFSET SIZE" line per section with decimal fields.
type LayoutDumper interface {
	DumpLayout(ctx context.Context, imagePath string) (string, error)
}

// SignatureVerifier verifies a firmware image's signed preamble and
// returns the verifier's free-form report. The report must contain
// exactly one line with the substring "Preamble flags:" followed by an
// integer at end of line.
type SignatureVerifier interface {
	VerifyFirmware(ctx context.Context, imagePath string) (string, error)
}

// Resigner re-signs a firmware image with the given preamble flags,
// writing the result to outPath.
type Resigner interface {
	Resign(ctx context.Context, inPath, outPath string, flags uint32) error
}

// ArchiveExtractor pulls one named entry out of a packed firmware
// container (CBFS) into destPath.
type ArchiveExtractor interface {
	ExtractEntry(ctx context.Context, containerPath, entryName, destPath string) error
}

// ContentHasher fingerprints a file's full contents for the VERSION
// manifest.
type ContentHasher interface {
	Calculate(path string) (string, error)
}
