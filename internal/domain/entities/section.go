// Package entities defines core domain models for firmware image assembly.
package entities

// FirmwareSection is one named byte range in a firmware image's FMAP.
type FirmwareSection struct {
	Name   string
	Offset uint64
	Size   uint64
}

// End returns the first byte offset past the section.
func (s FirmwareSection) End() uint64 {
	return s.Offset + s.Size
}

// SectionTable maps section names to their byte ranges.
type SectionTable map[string]FirmwareSection
