package gateways

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sglass68/firmware/internal/domain/entities"
)

func TestFind(t *testing.T) {
	base1 := t.TempDir()
	base2 := t.TempDir()
	//nolint:gosec // G306: tool programs are executable
	if err := os.WriteFile(filepath.Join(base2, "flashrom"), []byte("#!/bin/sh\n"), 0o700); err != nil {
		t.Fatalf("write tool: %v", err)
	}

	finder := NewToolFinder([]string{base1, base2})
	got, err := finder.Find("flashrom")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(base2, "flashrom"))
	if got != want {
		t.Errorf("Find = %s, want %s", got, want)
	}
}

func TestFindSearchOrder(t *testing.T) {
	base1 := t.TempDir()
	base2 := t.TempDir()
	for _, base := range []string{base1, base2} {
		//nolint:gosec // G306: tool programs are executable
		if err := os.WriteFile(filepath.Join(base, "mosys"), []byte("#!/bin/sh\n"), 0o700); err != nil {
			t.Fatalf("write tool: %v", err)
		}
	}

	finder := NewToolFinder([]string{base1, base2})
	got, err := finder.Find("mosys")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(base1, "mosys"))
	if got != want {
		t.Errorf("Find = %s, want first base %s", got, want)
	}
}

func TestFindNotFound(t *testing.T) {
	finder := NewToolFinder([]string{t.TempDir()})
	_, err := finder.Find("crossystem")
	if !entities.IsReason(err, entities.ReasonToolNotFound) {
		t.Fatalf("Find error = %v, want ReasonToolNotFound", err)
	}
}

func TestFindBundledPrefersStatic(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"flashrom", "flashrom_s"} {
		//nolint:gosec // G306: tool programs are executable
		if err := os.WriteFile(filepath.Join(base, name), []byte("#!/bin/sh\n"), 0o700); err != nil {
			t.Fatalf("write tool: %v", err)
		}
	}

	finder := NewToolFinder([]string{base})
	got, err := finder.FindBundled("flashrom")
	if err != nil {
		t.Fatalf("FindBundled failed: %v", err)
	}
	if filepath.Base(got) != "flashrom_s" {
		t.Errorf("FindBundled = %s, want the _s sibling", got)
	}
}

func TestFindBundledNoStaticSibling(t *testing.T) {
	base := t.TempDir()
	//nolint:gosec // G306: tool programs are executable
	if err := os.WriteFile(filepath.Join(base, "mosys"), []byte("#!/bin/sh\n"), 0o700); err != nil {
		t.Fatalf("write tool: %v", err)
	}

	finder := NewToolFinder([]string{base})
	got, err := finder.FindBundled("mosys")
	if err != nil {
		t.Fatalf("FindBundled failed: %v", err)
	}
	if filepath.Base(got) != "mosys" {
		t.Errorf("FindBundled = %s, want mosys", got)
	}
}

func TestEnsureAll(t *testing.T) {
	base := t.TempDir()
	//nolint:gosec // G306: tool programs are executable
	if err := os.WriteFile(filepath.Join(base, "flashrom"), []byte("#!/bin/sh\n"), 0o700); err != nil {
		t.Fatalf("write tool: %v", err)
	}

	finder := NewToolFinder([]string{base})
	if err := finder.EnsureAll([]string{"flashrom"}); err != nil {
		t.Errorf("EnsureAll failed: %v", err)
	}
	err := finder.EnsureAll([]string{"flashrom", "mosys"})
	if !entities.IsReason(err, entities.ReasonToolNotFound) {
		t.Errorf("EnsureAll error = %v, want ReasonToolNotFound", err)
	}
}
