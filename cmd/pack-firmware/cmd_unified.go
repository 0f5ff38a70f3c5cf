package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	orchestrators "github.com/sglass68/firmware/internal/domain-orchestrators"
	"github.com/sglass68/firmware/internal/domain/entities"
	"github.com/sglass68/firmware/internal/domain/interfaces/repositories"
	"github.com/sglass68/firmware/internal/external-adapters/yaml"
)

func runUnified(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unified", flag.ExitOnError)
	var (
		configFile = fs.String("c", "", "Master configuration file (required)")
		models     = fs.String("m", "", "Models to build (space or comma separated; default all)")
		output     = fs.String("o", "", "Output bundle file (required)")
		scriptBase = fs.String("script-base", ".", "Directory holding pack_stub and pack_dist/")
		toolBase   = fs.String("tool-base", "/usr/sbin:/usr/bin", "Colon-separated directories to search for tools")

		removeInactive = fs.Bool("remove-inactive-updaters", true, "Drop updater scripts other than the selected one")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pack-firmware unified -c <config> -o <bundle> [options]

Assemble a multi-model firmware bundle from a master configuration.

Examples:
  pack-firmware unified -c models.yaml -o firmware.tar.gz
  pack-firmware unified -c models.yaml -m "reef electro" -o firmware.tar.gz

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if *configFile == "" || *output == "" {
		fmt.Fprintf(os.Stderr, "Error: -c config file and -o output bundle are required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	var repo repositories.ConfigRepository = yaml.NewConfigRepository()
	config, err := repo.LoadConfig(ctx, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	names := splitList(*models)
	if len(names) == 0 {
		names = config.ModelNames()
	}

	specs := make([]entities.ModelBuildSpec, 0, len(names))
	for _, name := range names {
		model, ok := config.Model(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: model %s not found in %s\n", name, *configFile)
			os.Exit(1)
		}
		specs = append(specs, modelSpec(name, model))
	}

	orch := newOrchestrator(filepath.SplitList(*toolBase), orchestrators.PackOrchestratorConfig{
		ScriptBase:             *scriptBase,
		Output:                 *output,
		RemoveInactiveUpdaters: *removeInactive,
	}, config.ArchiveDir)

	result, err := orch.Run(ctx, specs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(result.Manifest)
	fmt.Printf("Packed %d model(s) to %s\n", len(result.Models), result.BundlePath)
}

// modelSpec converts one configuration node into a build spec.
func modelSpec(name string, model entities.ModelConfig) entities.ModelBuildSpec {
	return entities.ModelBuildSpec{
		ModelName:        name,
		BIOSImage:        model.MainImage,
		BIOSRWImage:      model.MainRWImage,
		ECImage:          model.ECImage,
		PDImage:          model.PDImage,
		MergeRW:          model.MainRWImage != "",
		CreateRWFromRO:   model.BuildMainRWImage,
		ECDefaultID:      model.ECDefaultID,
		PDDefaultID:      model.PDDefaultID,
		Script:           model.Script,
		Tools:            model.Tools,
		ExtraFiles:       model.Extras,
		SignatureKeyring: model.SignatureKeyring,
		Stable: entities.StableVersions{
			Main: model.StableMain,
			EC:   model.StableEC,
			PD:   model.StablePD,
		},
	}
}
