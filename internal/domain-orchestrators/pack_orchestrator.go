// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sglass68/firmware/internal/domain/entities"
	"github.com/sglass68/firmware/internal/domain/interfaces"
	intgw "github.com/sglass68/firmware/internal/domain/interfaces/gateways"
	"github.com/sglass68/firmware/internal/domain/services"
)

// Canonical artifact names inside the staging area.
const (
	imageMain   = "bios.bin"
	imageMainRW = "bios_rw.bin"
	imageEC     = "ec.bin"
	imagePD     = "pd.bin"

	versionFile = "VERSION"
	varsScript  = "setvars.sh"
)

// Container entry names for secondary-controller RW payloads.
const (
	entryECRW = "ecrw"
	entryPDRW = "pdrw"
)

// Update-script substitution tokens consumed by the packaging layer.
const (
	TokenROFWID     = "REPLACE_RO_FWID"
	TokenFWID       = "REPLACE_FWID"
	TokenECID       = "REPLACE_ECID"
	TokenPDID       = "REPLACE_PDID"
	TokenPlatform   = "REPLACE_PLATFORM"
	TokenScript     = "REPLACE_SCRIPT"
	TokenStableFWID = "REPLACE_STABLE_FWID"
	TokenStableECID = "REPLACE_STABLE_ECID"
	TokenStablePDID = "REPLACE_STABLE_PDID"
)

// ImageLoader interface for moving firmware images into the working
// area and between memory and disk
type ImageLoader interface {
	Materialize(srcPath, destPath string) (*entities.FirmwareBlob, error)
	Load(path string) (*entities.FirmwareBlob, error)
	Save(blob *entities.FirmwareBlob) error
}

// ToolFinder interface for locating bundled tool programs
type ToolFinder interface {
	Find(tool string) (string, error)
	FindBundled(tool string) (string, error)
	EnsureAll(tools []string) error
}

// ImageResolver interface for turning image references into local files
type ImageResolver interface {
	Resolve(ctx context.Context, ref, model, destDir string) (string, error)
}

// SignatureChecker interface for verifying detached signatures on
// input images
type SignatureChecker interface {
	LoadKeyringFile(path string) error
	VerifyDetached(imagePath, sigPath string) error
}

// Packager interface for staging files and bundling the staging tree
type Packager interface {
	CopyExecutable(src, dst string) error
	CopyReadable(src, dst string) error
	Bundle(stagingDir, bundlePath string) error
}

// FlashromProber interface for identifying the bundled flashrom binary
type FlashromProber interface {
	Probe(ctx context.Context, path string) (string, error)
}

// PackOrchestrator sequences the assembly engine per model to produce a
// complete, internally consistent set of firmware artifacts plus the
// VERSION manifest and the script substitution map.
type PackOrchestrator struct {
	mapper    *services.SectionMapper
	preamble  *services.PreambleFlagState
	merger    *services.SectionMerger
	extractor *services.ECRWExtractor
	hasher    intgw.ContentHasher
	loader    ImageLoader
	finder    ToolFinder
	resolver  ImageResolver
	sigs      SignatureChecker
	packager  Packager
	prober    FlashromProber
	logger    interfaces.Logger
	config    PackOrchestratorConfig
}

// PackOrchestratorConfig holds configuration for the orchestrator
type PackOrchestratorConfig struct {
	// ScriptBase holds pack_stub and the pack_dist payload directory.
	ScriptBase string
	// Output is the bundle path the packaging run produces.
	Output string
	// RemoveInactiveUpdaters drops updater scripts other than the
	// selected one from the staging area.
	RemoveInactiveUpdaters bool
}

// NewPackOrchestrator creates a new pack orchestrator
func NewPackOrchestrator(
	mapper *services.SectionMapper,
	preamble *services.PreambleFlagState,
	merger *services.SectionMerger,
	extractor *services.ECRWExtractor,
	hasher intgw.ContentHasher,
	loader ImageLoader,
	finder ToolFinder,
	resolver ImageResolver,
	sigs SignatureChecker,
	packager Packager,
	prober FlashromProber,
	logger interfaces.Logger,
	config PackOrchestratorConfig,
) *PackOrchestrator {
	return &PackOrchestrator{
		mapper:    mapper,
		preamble:  preamble,
		merger:    merger,
		extractor: extractor,
		hasher:    hasher,
		loader:    loader,
		finder:    finder,
		resolver:  resolver,
		sigs:      sigs,
		packager:  packager,
		prober:    prober,
		logger:    logger,
		config:    config,
	}
}

// BuildContext carries the per-run mutable state, threaded explicitly
// through every call instead of living in process-wide globals.
type BuildContext struct {
	// WorkDir is the scratch area for the whole run. It is created at
	// the start and removed on every exit path.
	WorkDir string
	// StagingDir is the subtree that becomes the output bundle.
	StagingDir string
}

// ModelResult contains the result of assembling one model
type ModelResult struct {
	Model         string
	Artifacts     []string
	Substitutions map[string]string
	Manifest      string
}

// RunResult contains the result of a full packaging run
type RunResult struct {
	BundlePath string
	Manifest   string
	Models     []*ModelResult
}

// Run assembles every model in sequence and bundles the result. Models
// are strictly sequential; a failure in any model aborts the whole
// build, and the scratch area is removed either way.
func (o *PackOrchestrator) Run(ctx context.Context, specs []entities.ModelBuildSpec) (*RunResult, error) {
	if o.config.Output == "" {
		return nil, entities.NewPackError(entities.ReasonBadImageRef, "missing output file")
	}
	stubFile := filepath.Join(o.config.ScriptBase, "pack_stub")
	if _, err := os.Stat(stubFile); err != nil {
		return nil, fmt.Errorf("cannot find required file %s: %w", stubFile, err)
	}

	workDir, err := os.MkdirTemp("", "pack_firmware-")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	bctx := &BuildContext{
		WorkDir:    workDir,
		StagingDir: filepath.Join(workDir, "staging"),
	}
	if err := os.MkdirAll(bctx.StagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	result := &RunResult{}
	var blocks []string
	multiModel := len(specs) > 1
	for i := range specs {
		spec := &specs[i]
		o.logger.Info("assembling model", interfaces.F("model", displayModel(spec)))
		modelResult, err := o.buildModel(ctx, spec, bctx, multiModel)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", displayModel(spec), err)
		}
		result.Models = append(result.Models, modelResult)
		blocks = append(blocks, modelResult.Manifest)
	}

	result.Manifest = strings.Join(blocks, "\n")
	versionPath := filepath.Join(bctx.StagingDir, versionFile)
	if err := os.WriteFile(versionPath, []byte(result.Manifest), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", versionFile, err)
	}

	if err := o.packager.Bundle(bctx.StagingDir, o.config.Output); err != nil {
		return nil, fmt.Errorf("bundle staging area: %w", err)
	}
	result.BundlePath = o.config.Output
	o.logger.Info("packed output bundle", interfaces.F("path", o.config.Output))
	return result, nil
}

func displayModel(spec *entities.ModelBuildSpec) string {
	if spec.ModelName == "" {
		return "(default)"
	}
	return spec.ModelName
}

// buildModel runs the assembly steps for one model into its staging
// subdirectory.
func (o *PackOrchestrator) buildModel(ctx context.Context, spec *entities.ModelBuildSpec,
	bctx *BuildContext, multiModel bool) (*ModelResult, error) {
	if !spec.HasAnyImage() {
		return nil, entities.NewPackError(entities.ReasonNoImageProvided,
			"must assign at least one of BIOS or EC or PD image")
	}
	if err := o.finder.EnsureAll(spec.Tools); err != nil {
		return nil, err
	}
	scriptFile := filepath.Join(o.config.ScriptBase, "pack_dist", spec.Script)
	if spec.Script != "" {
		if _, err := os.Stat(scriptFile); err != nil {
			return nil, fmt.Errorf("cannot find required file %s: %w", scriptFile, err)
		}
	}
	if spec.SignatureKeyring != "" {
		if err := o.sigs.LoadKeyringFile(spec.SignatureKeyring); err != nil {
			return nil, fmt.Errorf("load keyring %s: %w", spec.SignatureKeyring, err)
		}
	}

	stage := bctx.StagingDir
	if multiModel || spec.ModelName != "" {
		stage = filepath.Join(bctx.StagingDir, "models", spec.ModelName)
	}
	if err := os.MkdirAll(stage, 0o750); err != nil {
		return nil, fmt.Errorf("create model staging directory: %w", err)
	}

	ledger := services.NewVersionLedger(o.hasher)
	build := &modelBuild{
		spec:    spec,
		bctx:    bctx,
		stage:   stage,
		ledger:  ledger,
		mergeRW: spec.MergeRW,
	}

	if err := o.probeFlashrom(ctx, build); err != nil {
		return nil, err
	}
	if err := o.assembleBIOS(ctx, build); err != nil {
		return nil, err
	}
	if err := o.assembleController(ctx, build, entities.KindEC, spec.ECImage,
		spec.ECDefaultID, entryECRW, imageEC); err != nil {
		return nil, err
	}
	if err := o.assembleController(ctx, build, entities.KindPD, spec.PDImage,
		spec.PDDefaultID, entryPDRW, imagePD); err != nil {
		return nil, err
	}
	if err := o.stageSupportFiles(build); err != nil {
		return nil, err
	}

	subst := o.substitutions(build)
	if err := o.writeVarsScript(build, subst); err != nil {
		return nil, err
	}

	return &ModelResult{
		Model:         spec.ModelName,
		Artifacts:     build.artifacts,
		Substitutions: subst,
		Manifest:      ledger.Render(),
	}, nil
}

// modelBuild is the in-flight state of one model's assembly.
type modelBuild struct {
	spec   *entities.ModelBuildSpec
	bctx   *BuildContext
	stage  string
	ledger *services.VersionLedger

	mergeRW   bool
	biosBlob  *entities.FirmwareBlob
	roVersion entities.VersionValue
	rwVersion entities.VersionValue
	ecVersion entities.VersionValue
	pdVersion entities.VersionValue
	artifacts []string
}

// displayName prefixes manifest names with the model so records from
// different models stay distinguishable in one accumulated manifest.
func (b *modelBuild) displayName(kind entities.ComponentKind) string {
	if b.spec.ModelName == "" {
		return kind.DisplayName()
	}
	return b.spec.ModelName + " " + kind.DisplayName()
}

// resolveInput turns an image reference into a verified local file.
func (o *PackOrchestrator) resolveInput(ctx context.Context, build *modelBuild,
	ref string) (string, error) {
	src, err := o.resolver.Resolve(ctx, ref, build.spec.ModelName, build.bctx.WorkDir)
	if err != nil {
		return "", err
	}
	if build.spec.SignatureKeyring != "" {
		sig := src + ".sig"
		if _, err := os.Stat(sig); err == nil {
			if err := o.sigs.VerifyDetached(src, sig); err != nil {
				return "", err
			}
		}
	}
	return src, nil
}

func (o *PackOrchestrator) probeFlashrom(ctx context.Context, build *modelBuild) error {
	for _, tool := range build.spec.Tools {
		if tool != "flashrom" {
			continue
		}
		path, err := o.finder.Find(tool)
		if err != nil {
			return err
		}
		block, err := o.prober.Probe(ctx, path)
		if err != nil {
			return fmt.Errorf("probe flashrom: %w", err)
		}
		build.ledger.AddNote(block)
	}
	return nil
}

// firmwareIDVersion applies the missing-ID policy: a readable ID is
// known, a missing or empty one is ignored unless strict mode makes it
// a hard failure.
func firmwareIDVersion(blob *entities.FirmwareBlob, section string,
	strict bool) (entities.VersionValue, error) {
	id, err := services.ReadFirmwareID(blob, section)
	if err != nil && !entities.IsReason(err, entities.ReasonSectionNotFound) {
		return entities.AbsentVersion(), err
	}
	if err != nil || id == "" {
		if strict {
			return entities.AbsentVersion(), entities.NewPackError(
				entities.ReasonMissingFirmwareID,
				"image %s has no readable %s", blob.Path, section)
		}
		return entities.IgnoredVersion(), nil
	}
	return entities.KnownVersion(id), nil
}

func (o *PackOrchestrator) assembleBIOS(ctx context.Context, build *modelBuild) error {
	spec := build.spec
	build.roVersion = entities.AbsentVersion()
	build.rwVersion = entities.AbsentVersion()

	if spec.BIOSImage == "" {
		build.mergeRW = false
		return nil
	}

	src, err := o.resolveInput(ctx, build, spec.BIOSImage)
	if err != nil {
		return err
	}
	blob, err := o.loader.Materialize(src, filepath.Join(build.stage, imageMain))
	if err != nil {
		return err
	}
	if err := o.mapper.Load(ctx, blob); err != nil {
		return err
	}
	build.biosBlob = blob
	build.artifacts = append(build.artifacts, blob.Path)

	build.roVersion, err = firmwareIDVersion(blob, services.SectionROFRID, spec.StrictFirmwareID)
	if err != nil {
		return err
	}
	if err := build.ledger.Add(entities.KindBIOS, build.displayName(entities.KindBIOS),
		src, build.roVersion); err != nil {
		return err
	}

	return o.resolveRWBIOS(ctx, build)
}

// resolveRWBIOS handles the three mutually exclusive RW branches:
// create-from-RO, external RW image, or no RW component at all.
func (o *PackOrchestrator) resolveRWBIOS(ctx context.Context, build *modelBuild) error {
	spec := build.spec

	rwRef := spec.BIOSRWImage
	created := false
	var rwBlob *entities.FirmwareBlob

	if rwRef == "" && spec.CreateRWFromRO {
		// Re-signing the RO image produces an already-merged image, so
		// section merging is skipped for this model.
		rwPath := filepath.Join(build.stage, imageMainRW)
		if err := o.preamble.CreateRWFromRO(ctx, build.biosBlob.Path, rwPath); err != nil {
			return err
		}
		o.logger.Info("RW firmware image created", interfaces.F("path", rwPath))
		created = true
		build.mergeRW = false

		blob, err := o.loader.Load(rwPath)
		if err != nil {
			return err
		}
		rwBlob = blob
	} else if rwRef != "" {
		src, err := o.resolveInput(ctx, build, rwRef)
		if err != nil {
			return err
		}
		if err := o.preamble.AssertIsRW(ctx, src); err != nil {
			return err
		}
		dest := filepath.Join(build.stage, imageMainRW)
		if build.mergeRW {
			// The merged sections land in bios.bin; no sibling RW
			// artifact is kept.
			dest = filepath.Join(build.bctx.WorkDir, spec.ModelName+"-"+imageMainRW)
		}
		blob, err := o.loader.Materialize(src, dest)
		if err != nil {
			return err
		}
		rwBlob = blob
	} else {
		build.mergeRW = false
		return nil
	}

	if err := o.mapper.Load(ctx, rwBlob); err != nil {
		return err
	}
	version, err := firmwareIDVersion(rwBlob, services.SectionROFRID, false)
	if err != nil {
		return err
	}
	build.rwVersion = version

	if build.mergeRW {
		for _, section := range []string{"RW_SECTION_A", "RW_SECTION_B"} {
			if err := o.merger.CloneSection(build.biosBlob, rwBlob, section); err != nil {
				return err
			}
		}
		if err := o.loader.Save(build.biosBlob); err != nil {
			return err
		}
	} else if !created {
		build.artifacts = append(build.artifacts, rwBlob.Path)
	}
	if created {
		build.artifacts = append(build.artifacts, rwBlob.Path)
	}

	return build.ledger.Add(entities.KindBIOSRW, build.displayName(entities.KindBIOSRW),
		rwBlob.Path, version)
}

// assembleController copies an EC or PD image into the staging area
// and, when merging is enabled, back-fills its RW payload from the
// BIOS image and records the resulting RW firmware ID.
func (o *PackOrchestrator) assembleController(ctx context.Context, build *modelBuild,
	kind entities.ComponentKind, ref, defaultID, entryName, artifact string) error {
	if ref == "" {
		return nil
	}

	src, err := o.resolveInput(ctx, build, ref)
	if err != nil {
		return err
	}
	blob, err := o.loader.Materialize(src, filepath.Join(build.stage, artifact))
	if err != nil {
		return err
	}
	if err := o.mapper.Load(ctx, blob); err != nil {
		return err
	}
	build.artifacts = append(build.artifacts, blob.Path)

	version, err := firmwareIDVersion(blob, services.SectionROFRID, false)
	if err != nil {
		return err
	}
	if !version.IsKnown() && defaultID != "" {
		version = entities.KnownVersion(defaultID)
	}
	if err := build.ledger.Add(kind, build.displayName(kind), src, version); err != nil {
		return err
	}

	rwKind := entities.KindECRW
	if kind == entities.KindPD {
		build.pdVersion = version
		rwKind = entities.KindPDRW
	} else {
		build.ecVersion = version
	}

	if !build.mergeRW || build.biosBlob == nil {
		return nil
	}

	strategy := services.ResolveStrategy(build.biosBlob)
	payload, err := o.extractor.Extract(ctx, build.biosBlob, strategy, entryName,
		build.bctx.WorkDir)
	if err != nil {
		return err
	}
	if err := o.extractor.MergePayload(blob, build.biosBlob, payload); err != nil {
		return err
	}
	if err := o.loader.Save(blob); err != nil {
		return err
	}

	rwVersion, err := firmwareIDVersion(blob, services.SectionRWFWID, false)
	if err != nil {
		return err
	}
	return build.ledger.Add(rwKind, build.displayName(rwKind), "", rwVersion)
}

// stageSupportFiles copies the bundled tools, the updater payload and
// any extra files into the model's staging area.
func (o *PackOrchestrator) stageSupportFiles(build *modelBuild) error {
	spec := build.spec

	for _, tool := range spec.Tools {
		src, err := o.finder.FindBundled(tool)
		if err != nil {
			return err
		}
		if err := o.packager.CopyExecutable(src, filepath.Join(build.stage, tool)); err != nil {
			return err
		}
	}

	packDist := filepath.Join(o.config.ScriptBase, "pack_dist")
	entries, err := filepath.Glob(filepath.Join(packDist, "*"))
	if err != nil {
		return fmt.Errorf("list %s: %w", packDist, err)
	}
	for _, entry := range entries {
		base := filepath.Base(entry)
		if o.config.RemoveInactiveUpdaters && strings.Contains(base, "updater") &&
			base != spec.Script {
			continue
		}
		if err := o.packager.CopyExecutable(entry, build.stage); err != nil {
			return err
		}
	}

	for _, extra := range spec.ExtraFiles {
		info, err := os.Stat(extra)
		if err != nil {
			return fmt.Errorf("extra file %s: %w", extra, err)
		}
		if info.IsDir() {
			files, err := filepath.Glob(filepath.Join(extra, "*"))
			if err != nil {
				return fmt.Errorf("list extra directory %s: %w", extra, err)
			}
			if len(files) == 0 {
				return entities.NewPackError(entities.ReasonBadImageRef,
					"cannot copy extra files from folder '%s'", extra)
			}
			for _, file := range files {
				if err := o.packager.CopyReadable(file, build.stage); err != nil {
					return err
				}
			}
			build.ledger.AddNote(fmt.Sprintf("Extra files from directory '%s'", extra))
		} else {
			if err := o.packager.CopyReadable(extra, build.stage); err != nil {
				return err
			}
			build.ledger.AddNote(fmt.Sprintf("Extra file '%s'", extra))
		}
	}
	return nil
}

// substitutions builds the template substitution map handed to the
// packaging layer.
func (o *PackOrchestrator) substitutions(build *modelBuild) map[string]string {
	spec := build.spec

	rwEffective := build.rwVersion
	if !rwEffective.IsKnown() {
		// No RW image produced; the updater treats the RO build as the
		// active firmware version.
		rwEffective = build.roVersion
	}

	platform := "IGNORE"
	if build.roVersion.IsKnown() {
		// Google_Reef.9042.50.0 -> Google_Reef
		platform = strings.SplitN(build.roVersion.ID, ".", 2)[0]
	}

	return map[string]string{
		TokenROFWID:     build.roVersion.Token(),
		TokenFWID:       rwEffective.Token(),
		TokenECID:       build.ecVersion.Token(),
		TokenPDID:       build.pdVersion.Token(),
		TokenPlatform:   platform,
		TokenScript:     spec.Script,
		TokenStableFWID: spec.Stable.Main,
		TokenStableECID: spec.Stable.EC,
		TokenStablePDID: spec.Stable.PD,
	}
}

// writeVarsScript substitutes the stub template and drops the result
// into the model's staging area as an executable.
func (o *PackOrchestrator) writeVarsScript(build *modelBuild, subst map[string]string) error {
	stubFile := filepath.Join(o.config.ScriptBase, "pack_stub")
	data, err := os.ReadFile(stubFile)
	if err != nil {
		return fmt.Errorf("read stub %s: %w", stubFile, err)
	}
	text := string(data)
	for token, value := range subst {
		text = strings.ReplaceAll(text, token, value)
	}

	out := filepath.Join(build.stage, varsScript)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	info, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("stat %s: %w", out, err)
	}
	if err := os.Chmod(out, info.Mode().Perm()|0o555); err != nil {
		return fmt.Errorf("chmod %s: %w", out, err)
	}
	build.artifacts = append(build.artifacts, out)
	return nil
}
