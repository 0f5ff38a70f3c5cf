package services

import (
	"strings"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// Firmware-ID section names.
const (
	SectionROFRID = "RO_FRID"
	SectionRWFWID = "RW_FWID"
)

// ReadFirmwareID returns the firmware identification string embedded in
// the named section of the blob. The section holds raw ASCII text
// padded with NULs; the NULs and surrounding whitespace are stripped.
func ReadFirmwareID(blob *entities.FirmwareBlob, sectionName string) (string, error) {
	section, err := Lookup(blob.Sections, sectionName)
	if err != nil {
		return "", err
	}
	raw := string(blob.SectionBytes(section))
	return strings.TrimSpace(strings.ReplaceAll(raw, "\x00", "")), nil
}
