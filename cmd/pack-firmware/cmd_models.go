package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sglass68/firmware/internal/domain/interfaces/repositories"
	"github.com/sglass68/firmware/internal/external-adapters/yaml"
)

func runModels(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configFile := fs.String("c", "", "Master configuration file (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pack-firmware models -c <config>

List the models of a master configuration.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -c config file is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	var repo repositories.ConfigRepository = yaml.NewConfigRepository()
	config, err := repo.LoadConfig(ctx, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, name := range config.ModelNames() {
		model, _ := config.Model(name)
		images := 0
		for _, ref := range []string{model.MainImage, model.ECImage, model.PDImage} {
			if ref != "" {
				images++
			}
		}
		fmt.Printf("%-20s %d image(s)\n", name, images)
	}
}
