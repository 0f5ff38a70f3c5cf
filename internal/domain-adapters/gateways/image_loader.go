package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// Gaps between Intel HEX data segments are filled with erased-flash
// bytes when flattening to a raw image.
const erasedByte = 0xff

// ImageLoader moves firmware images into the working area and between
// memory and disk. Intel HEX inputs are flattened to raw binary so the
// rest of the engine only ever sees flat images.
type ImageLoader struct{}

// NewImageLoader creates a new image loader
func NewImageLoader() *ImageLoader {
	return &ImageLoader{}
}

// Materialize copies the source image to destPath, converting Intel
// HEX input to raw binary, and loads the result. The source's
// modification timestamp is preserved on the copy.
func (l *ImageLoader) Materialize(srcPath, destPath string) (*entities.FirmwareBlob, error) {
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(srcPath), ".hex") {
		data, err = flattenIntelHex(srcPath)
	} else {
		data, err = os.ReadFile(srcPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", srcPath, err)
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("stat image %s: %w", srcPath, err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write image %s: %w", destPath, err)
	}
	if err := os.Chtimes(destPath, info.ModTime(), info.ModTime()); err != nil {
		return nil, fmt.Errorf("set timestamp of %s: %w", destPath, err)
	}

	return &entities.FirmwareBlob{
		Path:    destPath,
		Data:    data,
		ModTime: info.ModTime(),
	}, nil
}

// Load reads an existing flat image into memory.
func (l *ImageLoader) Load(path string) (*entities.FirmwareBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image %s: %w", path, err)
	}
	return &entities.FirmwareBlob{
		Path:    path,
		Data:    data,
		ModTime: info.ModTime(),
	}, nil
}

// Save writes the blob's bytes back to its path and applies the blob's
// modification timestamp to the file.
func (l *ImageLoader) Save(blob *entities.FirmwareBlob) error {
	if err := os.WriteFile(blob.Path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("write image %s: %w", blob.Path, err)
	}
	if err := os.Chtimes(blob.Path, blob.ModTime, blob.ModTime); err != nil {
		return fmt.Errorf("set timestamp of %s: %w", blob.Path, err)
	}
	return nil
}

// flattenIntelHex parses an Intel HEX file and flattens its data
// segments into one contiguous image starting at the lowest address.
func flattenIntelHex(path string) ([]byte, error) {
	//nolint:gosec // G304: image path comes from the build spec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return nil, fmt.Errorf("parse Intel HEX: %w", err)
	}
	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("no data records in %s", path)
	}

	base := segments[0].Address
	end := segments[0].Address + uint32(len(segments[0].Data))
	for _, seg := range segments[1:] {
		if seg.Address < base {
			base = seg.Address
		}
		if segEnd := seg.Address + uint32(len(seg.Data)); segEnd > end {
			end = segEnd
		}
	}

	data := make([]byte, end-base)
	for i := range data {
		data[i] = erasedByte
	}
	for _, seg := range segments {
		copy(data[seg.Address-base:], seg.Data)
	}
	return data, nil
}
