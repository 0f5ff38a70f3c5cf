package gateways

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestCopyExecutable(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "flashrom")
	if err := os.WriteFile(src, []byte("#!/bin/sh\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	packager := NewBundlePackager()
	dst := filepath.Join(tmpDir, "staged", "flashrom")
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		t.Fatalf("create staging dir: %v", err)
	}
	if err := packager.CopyExecutable(src, dst); err != nil {
		t.Fatalf("CopyExecutable failed: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat copy: %v", err)
	}
	if info.Mode().Perm()&0o111 != 0o111 {
		t.Errorf("copy mode = %v, want executable bits set", info.Mode())
	}
}

func TestCopyExecutableIntoDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "updater.sh")
	if err := os.WriteFile(src, []byte("#!/bin/sh\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	stage := filepath.Join(tmpDir, "stage")
	if err := os.MkdirAll(stage, 0o750); err != nil {
		t.Fatalf("create stage: %v", err)
	}

	packager := NewBundlePackager()
	if err := packager.CopyExecutable(src, stage); err != nil {
		t.Fatalf("CopyExecutable failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stage, "updater.sh")); err != nil {
		t.Errorf("copy not placed inside directory: %v", err)
	}
}

func TestCopyReadable(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "NOTES")
	if err := os.WriteFile(src, []byte("notes"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	packager := NewBundlePackager()
	dst := filepath.Join(tmpDir, "NOTES.copy")
	if err := packager.CopyReadable(src, dst); err != nil {
		t.Fatalf("CopyReadable failed: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat copy: %v", err)
	}
	if info.Mode().Perm()&0o444 != 0o444 {
		t.Errorf("copy mode = %v, want world readable", info.Mode())
	}
}

func TestBundle(t *testing.T) {
	tmpDir := t.TempDir()
	staging := filepath.Join(tmpDir, "staging")
	if err := os.MkdirAll(filepath.Join(staging, "models", "reef"), 0o750); err != nil {
		t.Fatalf("create staging tree: %v", err)
	}
	files := map[string]string{
		"VERSION":                       "BIOS version: Google_Reef.9042.50.0\n",
		filepath.Join("models", "reef", "bios.bin"): "bios",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(staging, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	packager := NewBundlePackager()
	bundlePath := filepath.Join(tmpDir, "out", "firmware.tar.gz")
	if err := packager.Bundle(staging, bundlePath); err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	got := readTarGz(t, bundlePath)
	for name, content := range files {
		if got[name] != content {
			t.Errorf("bundle entry %s = %q, want %q", name, got[name], content)
		}
	}
}

// readTarGz returns the regular-file entries of a tar.gz bundle.
func readTarGz(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("open gzip stream: %v", err)
	}
	tr := tar.NewReader(gz)

	entries := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read bundle: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read entry %s: %v", hdr.Name, err)
		}
		entries[hdr.Name] = string(data)
	}
	return entries
}
