package entities

import "time"

// FirmwareBlob is a firmware image held in memory together with its
// parsed section table. A blob is owned exclusively by the operation
// currently manipulating it; builds are strictly sequential so blobs
// are never shared between concurrent operations.
type FirmwareBlob struct {
	Path     string
	Data     []byte
	Sections SectionTable
	ModTime  time.Time
}

// SectionBytes returns the bytes covered by the given section. The
// section must already have been validated against the blob length.
func (b *FirmwareBlob) SectionBytes(s FirmwareSection) []byte {
	return b.Data[s.Offset:s.End()]
}
