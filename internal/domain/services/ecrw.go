package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sglass68/firmware/internal/domain/entities"
	"github.com/sglass68/firmware/internal/domain/interfaces/gateways"
)

// EC_MAIN_A starts with three little-endian uint32 fields: the image
// count, the payload offset and the payload size.
const ecHeaderLen = 12

// Section names involved in EC/PD RW extraction and merging.
const (
	SectionECMainA = "EC_MAIN_A"
	SectionECRW    = "EC_RW"
)

// ExtractionStrategy is how the RW payload of a secondary-controller
// image is obtained. It is resolved once per source blob after
// inspecting the section map, then dispatched without re-probing.
type ExtractionStrategy int

const (
	// StrategyFMAP reads the payload from the EC_MAIN_A section.
	StrategyFMAP ExtractionStrategy = iota
	// StrategyArchive extracts a named entry from a packed firmware
	// container via an external tool.
	StrategyArchive
)

// ECRWExtractor obtains the RW payload of an embedded-controller-style
// firmware image and merges it into a destination blob's EC_RW section.
type ECRWExtractor struct {
	archive gateways.ArchiveExtractor
}

// NewECRWExtractor creates a new EC RW extractor
func NewECRWExtractor(archive gateways.ArchiveExtractor) *ECRWExtractor {
	return &ECRWExtractor{archive: archive}
}

// ResolveStrategy selects the extraction strategy for a source blob.
func ResolveStrategy(src *entities.FirmwareBlob) ExtractionStrategy {
	if _, ok := src.Sections[SectionECMainA]; ok {
		return StrategyFMAP
	}
	return StrategyArchive
}

// Extract returns the RW payload bytes of src using the given strategy.
// entryName names the container entry for the archive strategy and is
// ignored by the FMAP strategy. workDir receives the scratch file the
// archive tool writes to.
func (e *ECRWExtractor) Extract(ctx context.Context, src *entities.FirmwareBlob,
	strategy ExtractionStrategy, entryName, workDir string) ([]byte, error) {
	switch strategy {
	case StrategyFMAP:
		return e.extractFMAP(src)
	case StrategyArchive:
		return e.extractArchive(ctx, src, entryName, workDir)
	}
	return nil, fmt.Errorf("unknown extraction strategy %d", strategy)
}

func (e *ECRWExtractor) extractFMAP(src *entities.FirmwareBlob) ([]byte, error) {
	section, err := Lookup(src.Sections, SectionECMainA)
	if err != nil {
		return nil, err
	}
	if section.Size < ecHeaderLen {
		return nil, entities.NewPackError(entities.ReasonUnexpectedEcHeader,
			"section %s of %s is only %d bytes", SectionECMainA, src.Path, section.Size)
	}
	raw := src.SectionBytes(section)
	count := binary.LittleEndian.Uint32(raw[0:4])
	offset := binary.LittleEndian.Uint32(raw[4:8])
	size := binary.LittleEndian.Uint32(raw[8:12])
	if count != 1 || offset != ecHeaderLen {
		return nil, entities.NewPackError(entities.ReasonUnexpectedEcHeader,
			"unexpected %s header (count=%d, offset=%d) in %s",
			SectionECMainA, count, offset, src.Path)
	}
	if uint64(offset)+uint64(size) > section.Size {
		return nil, entities.NewPackError(entities.ReasonUnexpectedEcHeader,
			"%s payload (%d bytes) exceeds section (%d bytes) in %s",
			SectionECMainA, size, section.Size, src.Path)
	}
	return raw[offset : offset+size], nil
}

func (e *ECRWExtractor) extractArchive(ctx context.Context, src *entities.FirmwareBlob,
	entryName, workDir string) ([]byte, error) {
	scratch := filepath.Join(workDir, entryName)
	if err := e.archive.ExtractEntry(ctx, src.Path, entryName, scratch); err != nil {
		return nil, fmt.Errorf("extract %s from %s: %w", entryName, src.Path, err)
	}
	payload, err := os.ReadFile(scratch)
	if err != nil {
		return nil, fmt.Errorf("read extracted entry %s: %w", entryName, err)
	}
	return payload, nil
}

// MergePayload writes the payload into dst's EC_RW section. The payload
// must fit; bytes of the section beyond the payload length are left
// untouched. dst inherits src's modification timestamp.
func (e *ECRWExtractor) MergePayload(dst, src *entities.FirmwareBlob, payload []byte) error {
	section, err := Lookup(dst.Sections, SectionECRW)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > section.Size {
		return entities.NewPackError(entities.ReasonPayloadTooLarge,
			"RW payload (%d bytes) larger than %s section (%d bytes) of %s",
			len(payload), SectionECRW, section.Size, dst.Path)
	}
	copy(dst.Data[section.Offset:], payload)
	dst.ModTime = src.ModTime
	return nil
}
