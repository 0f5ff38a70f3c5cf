package entities

// ComponentKind identifies one independently-versioned firmware
// component within an update package.
type ComponentKind int

const (
	KindBIOS ComponentKind = iota
	KindBIOSRW
	KindEC
	KindECRW
	KindPD
	KindPDRW
)

// DisplayName returns the human-readable component name used in the
// VERSION manifest.
func (k ComponentKind) DisplayName() string {
	switch k {
	case KindBIOS:
		return "BIOS"
	case KindBIOSRW:
		return "BIOS (RW)"
	case KindEC:
		return "EC"
	case KindECRW:
		return "EC (RW)"
	case KindPD:
		return "PD"
	case KindPDRW:
		return "PD (RW)"
	}
	return "unknown"
}

// VersionKind tags the three states a component version can be in.
type VersionKind int

const (
	// VersionAbsent means the component produced no version at all.
	VersionAbsent VersionKind = iota
	// VersionKnown means a concrete firmware ID string was extracted.
	VersionKnown
	// VersionIgnored means the component deliberately reports no
	// version. One legacy device's EC cannot report its identity, so
	// its version is marked ignored rather than left as a misleading
	// blank string.
	VersionIgnored
)

// VersionValue is a tagged component version. It replaces the legacy
// "IGNORE" string sentinel; the sentinel is only materialized at the
// update-script boundary via Token.
type VersionValue struct {
	Kind VersionKind
	ID   string
}

// KnownVersion returns a version with a concrete firmware ID.
func KnownVersion(id string) VersionValue {
	return VersionValue{Kind: VersionKnown, ID: id}
}

// IgnoredVersion returns the explicit no-version-check marker.
func IgnoredVersion() VersionValue {
	return VersionValue{Kind: VersionIgnored}
}

// AbsentVersion returns the value for a component that was not built.
func AbsentVersion() VersionValue {
	return VersionValue{Kind: VersionAbsent}
}

// IsKnown reports whether a concrete firmware ID is available.
func (v VersionValue) IsKnown() bool {
	return v.Kind == VersionKnown
}

// Token renders the value for the update-script substitution map. The
// legacy updater consumes the literal "IGNORE" marker for components
// without a version, so that string is produced here and nowhere else.
func (v VersionValue) Token() string {
	if v.Kind == VersionKnown {
		return v.ID
	}
	return "IGNORE"
}

// ComponentRecord captures the identity of one packaged component.
type ComponentRecord struct {
	Kind        ComponentKind
	DisplayName string
	SourcePath  string // empty when the record carries only a version
	ContentHash string // md5 of the source file, empty without a source
	Version     VersionValue
}
