package services

import (
	"github.com/sglass68/firmware/internal/domain/entities"
)

// SectionMerger splices one named section's bytes from a source blob
// into a destination blob. Used to merge the fixed-location RW regions
// (RW_SECTION_A, RW_SECTION_B) of an RW image into the RO image.
type SectionMerger struct{}

// NewSectionMerger creates a new section merger
func NewSectionMerger() *SectionMerger {
	return &SectionMerger{}
}

// CloneSection copies the named section from src into dst. The section
// must exist in both blobs with identical non-zero size and identical
// offset; every other byte of dst is unchanged. The operation is
// idempotent, and on any validation failure neither blob is mutated.
// On success dst inherits src's modification timestamp.
func (m *SectionMerger) CloneSection(dst, src *entities.FirmwareBlob, name string) error {
	srcSection, err := Lookup(src.Sections, name)
	if err != nil {
		return err
	}
	dstSection, err := Lookup(dst.Sections, name)
	if err != nil {
		return err
	}
	if srcSection.Size == 0 {
		return entities.NewPackError(entities.ReasonInvalidSection,
			"section %s of %s has zero size", name, src.Path)
	}
	if srcSection.Size != dstSection.Size {
		return entities.NewPackError(entities.ReasonSectionSizeMismatch,
			"section %s: source %d bytes, destination %d bytes",
			name, srcSection.Size, dstSection.Size)
	}
	if srcSection.Offset != dstSection.Offset {
		return entities.NewPackError(entities.ReasonSectionOffsetMismatch,
			"section %s: source at %d, destination at %d",
			name, srcSection.Offset, dstSection.Offset)
	}
	copy(dst.Data[dstSection.Offset:dstSection.End()], src.SectionBytes(srcSection))
	dst.ModTime = src.ModTime
	return nil
}
