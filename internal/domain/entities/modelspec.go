package entities

// StableVersions carries caller-supplied "known good" firmware versions
// that are substituted into the update script unchanged.
type StableVersions struct {
	Main string
	EC   string
	PD   string
}

// ModelBuildSpec drives exactly one orchestration pass for one model.
// Image fields are references: either local paths (possibly containing
// a ${MODEL} placeholder) or bcs:// single-entry archive references.
type ModelBuildSpec struct {
	// ModelName may be empty for single-device builds. When set,
	// artifacts are placed in an isolated per-model subdirectory and
	// manifest entries are prefixed with the model name.
	ModelName string

	BIOSImage   string
	BIOSRWImage string
	ECImage     string
	PDImage     string

	// MergeRW splices RW_SECTION_A/B of the RW image into the BIOS
	// image and back-fills the EC/PD RW payloads.
	MergeRW bool
	// CreateRWFromRO generates the RW image by re-signing the RO image
	// with the RO-normal preamble bit cleared. Only consulted when no
	// BIOSRWImage is given.
	CreateRWFromRO bool

	// ECDefaultID and PDDefaultID are fallback firmware IDs used when
	// the controller image carries no readable RO_FRID section.
	ECDefaultID string
	PDDefaultID string

	// StrictFirmwareID makes a missing or empty BIOS RO firmware ID a
	// hard failure. The default (false) keeps the legacy behavior of
	// recording the version as ignored.
	StrictFirmwareID bool

	// Script is the name of the updater script selected for this model.
	Script string
	// Tools lists the host tool programs bundled into the package.
	Tools []string
	// ExtraFiles lists additional files or directories to bundle.
	ExtraFiles []string

	// SignatureKeyring, when set, is an OpenPGP keyring used to verify
	// detached .sig files next to each input image.
	SignatureKeyring string

	Stable StableVersions
}

// HasAnyImage reports whether at least one firmware input is present.
func (s *ModelBuildSpec) HasAnyImage() bool {
	return s.BIOSImage != "" || s.ECImage != "" || s.PDImage != ""
}
