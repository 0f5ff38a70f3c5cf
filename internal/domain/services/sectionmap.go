// Package services implements the firmware image assembly engine: the
// section model, the RO/RW preamble state machine, the section merge
// and EC RW extraction algorithms, and the version ledger.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sglass68/firmware/internal/domain/entities"
	"github.com/sglass68/firmware/internal/domain/interfaces/gateways"
)

// SectionMapper builds and queries the named-section layout of a
// firmware blob. Layout discovery is delegated to an external layout
// dump tool; parsing and validation happen here.
type SectionMapper struct {
	dumper gateways.LayoutDumper
}

// NewSectionMapper creates a new section mapper
func NewSectionMapper(dumper gateways.LayoutDumper) *SectionMapper {
	return &SectionMapper{dumper: dumper}
}

// ParseLayout parses section-layout text, one "NAME OFFSET SIZE" line
// per section with decimal offset and size.
func ParseLayout(text string) (entities.SectionTable, error) {
	table := make(entities.SectionTable)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed section layout line %q", line)
		}
		offset, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad offset in layout line %q: %w", line, err)
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad size in layout line %q: %w", line, err)
		}
		table[fields[0]] = entities.FirmwareSection{
			Name:   fields[0],
			Offset: offset,
			Size:   size,
		}
	}
	return table, nil
}

// Load fills blob.Sections from the layout dumper, checking every
// section against the blob length.
func (m *SectionMapper) Load(ctx context.Context, blob *entities.FirmwareBlob) error {
	text, err := m.dumper.DumpLayout(ctx, blob.Path)
	if err != nil {
		return fmt.Errorf("layout dump of %s: %w", blob.Path, err)
	}
	table, err := ParseLayout(text)
	if err != nil {
		return fmt.Errorf("layout of %s: %w", blob.Path, err)
	}
	for _, section := range table {
		if section.End() > uint64(len(blob.Data)) {
			return entities.NewPackError(entities.ReasonInvalidSection,
				"section %s (%d+%d) exceeds image %s (%d bytes)",
				section.Name, section.Offset, section.Size, blob.Path, len(blob.Data))
		}
	}
	blob.Sections = table
	return nil
}

// Lookup returns the named section from a table.
func Lookup(table entities.SectionTable, name string) (entities.FirmwareSection, error) {
	section, ok := table[name]
	if !ok {
		return entities.FirmwareSection{}, entities.NewPackError(
			entities.ReasonSectionNotFound, "section %s not present", name)
	}
	return section, nil
}
