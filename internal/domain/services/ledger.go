package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sglass68/firmware/internal/domain/entities"
	"github.com/sglass68/firmware/internal/domain/interfaces/gateways"
)

// Build-root working directories are collapsed so manifests compare
// equal across build hosts.
var buildRootRe = regexp.MustCompile(`/build/.*/work/`)

// Width the component name is padded to in manifest lines.
const nameColumn = 7

// VersionLedger records per-component identity (name, source path,
// content hash, firmware ID) and renders the VERSION manifest block.
// Rendering sorts entries by display name, so the output is independent
// of insertion order.
type VersionLedger struct {
	hasher  gateways.ContentHasher
	records []entities.ComponentRecord
	notes   []string
}

// NewVersionLedger creates a new version ledger
func NewVersionLedger(hasher gateways.ContentHasher) *VersionLedger {
	return &VersionLedger{hasher: hasher}
}

// Add records one component. When sourcePath is non-empty the file's
// full contents are fingerprinted and an image line is emitted for it.
// A version line is emitted only for known versions; ignored versions
// suppress the line entirely.
func (l *VersionLedger) Add(kind entities.ComponentKind, displayName, sourcePath string,
	version entities.VersionValue) error {
	record := entities.ComponentRecord{
		Kind:        kind,
		DisplayName: displayName,
		SourcePath:  sourcePath,
		Version:     version,
	}
	if sourcePath != "" {
		hash, err := l.hasher.Calculate(sourcePath)
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", sourcePath, err)
		}
		record.ContentHash = hash
	}
	l.records = append(l.records, record)
	return nil
}

// AddNote appends free-form manifest text (tool identity blocks, extra
// file annotations). Notes render before component records, in
// insertion order.
func (l *VersionLedger) AddNote(text string) {
	l.notes = append(l.notes, text)
}

// Records returns a copy of the recorded components.
func (l *VersionLedger) Records() []entities.ComponentRecord {
	out := make([]entities.ComponentRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Render produces the manifest block for this ledger. Component entries
// are sorted lexicographically by display name; any permutation of the
// same Add calls renders identical text.
func (l *VersionLedger) Render() string {
	var b strings.Builder
	for _, note := range l.notes {
		b.WriteString(note)
		b.WriteString("\n")
	}

	sorted := l.Records()
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DisplayName < sorted[j].DisplayName
	})
	for _, record := range sorted {
		pad := namePad(record.DisplayName)
		if record.SourcePath != "" {
			fmt.Fprintf(&b, "%s image:%s%s %s\n", record.DisplayName, pad,
				record.ContentHash, normalizePath(record.SourcePath))
		}
		if record.Version.IsKnown() {
			fmt.Fprintf(&b, "%s version:%s%s\n", record.DisplayName, pad,
				record.Version.ID)
		}
	}
	return b.String()
}

func namePad(name string) string {
	if len(name) >= nameColumn {
		return ""
	}
	return strings.Repeat(" ", nameColumn-len(name))
}

// normalizePath strips the build-root prefix from a source path.
func normalizePath(path string) string {
	return buildRootRe.ReplaceAllString(path, "*")
}
