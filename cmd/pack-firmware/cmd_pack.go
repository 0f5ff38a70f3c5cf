package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	orchestrators "github.com/sglass68/firmware/internal/domain-orchestrators"
	"github.com/sglass68/firmware/internal/domain/entities"
)

func runPack(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	var (
		bios       = fs.String("b", "", "Path or bcs:// reference of the BIOS (main) image")
		biosRW     = fs.String("w", "", "Path or bcs:// reference of the BIOS RW image")
		ec         = fs.String("e", "", "Path or bcs:// reference of the EC image")
		pd         = fs.String("p", "", "Path or bcs:// reference of the PD image")
		output     = fs.String("o", "", "Output bundle file (required)")
		script     = fs.String("script", "updater.sh", "Updater script to bundle")
		scriptBase = fs.String("script-base", ".", "Directory holding pack_stub and pack_dist/")
		extra      = fs.String("extra", "", "Extra files or directories to bundle (space or comma separated)")
		tools      = fs.String("tools", "flashrom mosys crossystem", "Tool programs to bundle")
		toolBase   = fs.String("tool-base", "/usr/sbin:/usr/bin", "Colon-separated directories to search for tools")

		createRW = fs.Bool("create-bios-rw-image", false, "Create the RW image by re-signing the RO image")
		mergeRW  = fs.Bool("merge-bios-rw-image", false, "Merge the RW image's update sections into the BIOS image")

		stableMain = fs.String("stable-main-version", "", "Known-good main firmware version")
		stableEC   = fs.String("stable-ec-version", "", "Known-good EC firmware version")
		stablePD   = fs.String("stable-pd-version", "", "Known-good PD firmware version")

		ecDefaultID = fs.String("ec-default-id", "", "Fallback EC firmware ID when the image has none")
		pdDefaultID = fs.String("pd-default-id", "", "Fallback PD firmware ID when the image has none")

		keyring    = fs.String("keyring", "", "OpenPGP keyring for verifying detached .sig files next to inputs")
		strictFWID = fs.Bool("strict-fwid", false, "Fail when the BIOS image has no readable firmware ID")

		removeInactive = fs.Bool("remove-inactive-updaters", true, "Drop updater scripts other than the selected one")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pack-firmware pack -o <bundle> [options]

Assemble one firmware update bundle from explicit image paths.

Examples:
  pack-firmware pack -b image.bin -e ec.bin -o firmware.tar.gz
  pack-firmware pack -b image.bin -w image_rw.bin -merge-bios-rw-image -o firmware.tar.gz
  pack-firmware pack -b image.bin -create-bios-rw-image -o firmware.tar.gz

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if *output == "" {
		fmt.Fprintf(os.Stderr, "Error: -o output bundle is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	spec := entities.ModelBuildSpec{
		BIOSImage:        *bios,
		BIOSRWImage:      *biosRW,
		ECImage:          *ec,
		PDImage:          *pd,
		MergeRW:          *mergeRW,
		CreateRWFromRO:   *createRW,
		ECDefaultID:      *ecDefaultID,
		PDDefaultID:      *pdDefaultID,
		StrictFirmwareID: *strictFWID,
		Script:           *script,
		Tools:            splitList(*tools),
		ExtraFiles:       splitList(*extra),
		SignatureKeyring: *keyring,
		Stable: entities.StableVersions{
			Main: *stableMain,
			EC:   *stableEC,
			PD:   *stablePD,
		},
	}

	orch := newOrchestrator(filepath.SplitList(*toolBase), orchestrators.PackOrchestratorConfig{
		ScriptBase:             *scriptBase,
		Output:                 *output,
		RemoveInactiveUpdaters: *removeInactive,
	}, "")

	result, err := orch.Run(ctx, []entities.ModelBuildSpec{spec})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(result.Manifest)
	fmt.Printf("Packed output to %s\n", result.BundlePath)
}
