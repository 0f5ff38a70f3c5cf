package yaml

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleConfig = `
archive-dir: /archives
models:
  reef:
    main-image: bcs://Reef.9042.50.0.tbz2
    ec-image: bcs://Reef_EC.9042.50.0.tbz2
    pd-image: bcs://Reef_PD.9042.50.0.tbz2
    main-rw-image: bcs://Reef.9042.110.0.tbz2
    script: updater4.sh
    stable-main-version: Google_Reef.9042.27.0
    stable-ec-version: reef_v1.1.5840-f0d7761
    tools:
      - flashrom
      - crossystem
    extras:
      - ${SYSROOT}/usr/share/firmware/notes.txt
  electro:
    main-image: bcs://Electro.9042.50.0.tbz2
    build-main-rw-image: true
    ec-default-id: electro_v1.0
`

func TestParse(t *testing.T) {
	parser := NewConfigParser()
	config, err := parser.Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if config.ArchiveDir != "/archives" {
		t.Errorf("archive dir = %s, want /archives", config.ArchiveDir)
	}
	if got := config.ModelNames(); !reflect.DeepEqual(got, []string{"electro", "reef"}) {
		t.Errorf("model names = %v, want [electro reef]", got)
	}

	reef, ok := config.Model("reef")
	if !ok {
		t.Fatalf("model reef missing")
	}
	if reef.MainImage != "bcs://Reef.9042.50.0.tbz2" {
		t.Errorf("main image = %s", reef.MainImage)
	}
	if reef.Script != "updater4.sh" {
		t.Errorf("script = %s, want updater4.sh", reef.Script)
	}
	if reef.StableMain != "Google_Reef.9042.27.0" {
		t.Errorf("stable main = %s", reef.StableMain)
	}
	if !reflect.DeepEqual(reef.Tools, []string{"flashrom", "crossystem"}) {
		t.Errorf("tools = %v", reef.Tools)
	}

	electro, ok := config.Model("electro")
	if !ok {
		t.Fatalf("model electro missing")
	}
	if !electro.BuildMainRWImage {
		t.Errorf("electro build-main-rw-image not set")
	}
	if electro.ECDefaultID != "electro_v1.0" {
		t.Errorf("electro EC default ID = %s", electro.ECDefaultID)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"invalid YAML", ":::"},
		{"no models", "archive-dir: /archives\n"},
		{"model without images", "models:\n  reef:\n    script: updater4.sh\n"},
	}

	parser := NewConfigParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Parse([]byte(tt.text)); err == nil {
				t.Fatalf("Parse succeeded, want error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "models.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	repo := NewConfigRepository()
	config, err := repo.LoadConfig(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(config.Models) != 2 {
		t.Errorf("got %d models, want 2", len(config.Models))
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	repo := NewConfigRepository()
	if _, err := repo.LoadConfig(context.Background(),
		filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("LoadConfig succeeded on missing file")
	}
}
