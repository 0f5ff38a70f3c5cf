package gateways

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCalculate(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	calc := NewChecksumCalculator()
	got, err := calc.Calculate(path)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	want := "5eb63bbbe01eeed093cb22bb8f5acdc3"
	if got != want {
		t.Errorf("Calculate = %s, want %s", got, want)
	}
}

func TestCalculateEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "empty.bin")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	calc := NewChecksumCalculator()
	got, err := calc.Calculate(path)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	want := "d41d8cd98f00b204e9800998ecf8427e"
	if got != want {
		t.Errorf("Calculate = %s, want %s", got, want)
	}
}

func TestCalculateMissingFile(t *testing.T) {
	calc := NewChecksumCalculator()
	if _, err := calc.Calculate(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatalf("Calculate succeeded on missing file")
	}
}

func TestCalculateBytes(t *testing.T) {
	calc := NewChecksumCalculator()
	got := calc.CalculateBytes([]byte("hello world"))
	want := "5eb63bbbe01eeed093cb22bb8f5acdc3"
	if got != want {
		t.Errorf("CalculateBytes = %s, want %s", got, want)
	}
}
