package gateways

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// checksumCalculator fingerprints firmware files for the VERSION
// manifest. md5 is the fingerprint the manifest format has always
// carried; it identifies content, it is not a security boundary.
type checksumCalculator struct{}

// NewChecksumCalculator creates a new checksum calculator
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumCalculator() *checksumCalculator {
	return &checksumCalculator{}
}

// Calculate returns the md5 fingerprint of a file's full contents.
func (c *checksumCalculator) Calculate(path string) (string, error) {
	//nolint:gosec // G304: file path comes from the build spec
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	//nolint:gosec // G401: md5 is the manifest's content fingerprint, not a security check
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateBytes fingerprints an in-memory buffer.
func (c *checksumCalculator) CalculateBytes(data []byte) string {
	//nolint:gosec // G401: content fingerprint only
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
