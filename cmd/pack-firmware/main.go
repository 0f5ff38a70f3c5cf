// Package main provides the pack-firmware CLI for assembling firmware
// update bundles.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sglass68/firmware/internal/domain-adapters/gateways"
	orchestrators "github.com/sglass68/firmware/internal/domain-orchestrators"
	"github.com/sglass68/firmware/internal/domain/interfaces"
	"github.com/sglass68/firmware/internal/domain/services"
	"github.com/sglass68/firmware/internal/external-adapters/gpg"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "pack":
		runPack(ctx, os.Args[2:])
	case "unified":
		runUnified(ctx, os.Args[2:])
	case "models":
		runModels(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pack-firmware - Firmware update bundle assembler

Usage:
  pack-firmware <command> [options]

Commands:
  pack     Assemble one update bundle from explicit image paths
  unified  Assemble a multi-model bundle from a master configuration
  models   List the models of a master configuration

Use "pack-firmware <command> --help" for more information about a command.`)
}

// splitList splits a space- or comma-separated flag value.
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// newOrchestrator wires the gateway stack behind a pack orchestrator.
// Tool programs are resolved through the tool base directories; a tool
// that cannot be found there falls back to PATH lookup at run time.
func newOrchestrator(toolBase []string, config orchestrators.PackOrchestratorConfig,
	archiveDir string) *orchestrators.PackOrchestrator {
	logger := &interfaces.StderrLogger{}
	runner := gateways.NewToolRunner()
	finder := gateways.NewToolFinder(toolBase)

	// The flashrom probe shells out to file(1) to identify the binary.
	if err := finder.EnsureCommand("file", "file"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resolve := func(tool string) string {
		if path, err := finder.Find(tool); err == nil {
			return path
		}
		return tool
	}

	dumper := gateways.NewFMAPDumper(runner, resolve("dump_fmap"))
	vboot := gateways.NewVbootGateway(runner, resolve("dump_fmap"),
		resolve("gbb_utility"), resolve("vbutil_firmware"),
		resolve("resign_firmwarefd.sh"))
	cbfs := gateways.NewCBFSExtractor(runner, resolve("cbfstool"))
	hasher := gateways.NewChecksumCalculator()

	return orchestrators.NewPackOrchestrator(
		services.NewSectionMapper(dumper),
		services.NewPreambleFlagState(vboot, vboot),
		services.NewSectionMerger(),
		services.NewECRWExtractor(cbfs),
		hasher,
		gateways.NewImageLoader(),
		finder,
		gateways.NewImageResolver(archiveDir),
		gpg.NewVerifier(),
		gateways.NewBundlePackager(),
		gateways.NewFlashromProber(runner),
		logger,
		config,
	)
}
