package gateways

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sglass68/firmware/internal/domain/entities"
)

func TestMaterializeBinary(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "image.bin")
	content := []byte{0x01, 0x02, 0x03, 0x04}
	if err := os.WriteFile(srcPath, content, 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	stamp := time.Date(2017, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := os.Chtimes(srcPath, stamp, stamp); err != nil {
		t.Fatalf("set timestamp: %v", err)
	}

	loader := NewImageLoader()
	destPath := filepath.Join(tmpDir, "bios.bin")
	blob, err := loader.Materialize(srcPath, destPath)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if blob.Path != destPath {
		t.Errorf("blob path = %s, want %s", blob.Path, destPath)
	}
	if !bytes.Equal(blob.Data, content) {
		t.Errorf("blob data = %x, want %x", blob.Data, content)
	}
	// The copy inherits the source timestamp.
	info, err := os.Stat(destPath)
	if err != nil {
		t.Fatalf("stat copy: %v", err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("copy timestamp = %v, want %v", info.ModTime(), stamp)
	}
	if !blob.ModTime.Equal(stamp) {
		t.Errorf("blob timestamp = %v, want %v", blob.ModTime, stamp)
	}
}

func TestMaterializeIntelHex(t *testing.T) {
	// Two data records with a 4-byte gap between them. The gap comes
	// out erased (0xff).
	hexText := ":0400000001020304F2\n" +
		":04000800AABBCCDDE6\n" +
		":00000001FF\n"
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "ec.hex")
	if err := os.WriteFile(srcPath, []byte(hexText), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	loader := NewImageLoader()
	blob, err := loader.Materialize(srcPath, filepath.Join(tmpDir, "ec.bin"))
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	want := []byte{0x01, 0x02, 0x03, 0x04, 0xff, 0xff, 0xff, 0xff,
		0xaa, 0xbb, 0xcc, 0xdd}
	if !bytes.Equal(blob.Data, want) {
		t.Errorf("flattened data = %x, want %x", blob.Data, want)
	}
}

func TestMaterializeIntelHexMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "bad.hex")
	if err := os.WriteFile(srcPath, []byte("not a hex file\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	loader := NewImageLoader()
	if _, err := loader.Materialize(srcPath, filepath.Join(tmpDir, "bad.bin")); err == nil {
		t.Fatalf("Materialize succeeded on malformed hex input")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.bin")
	stamp := time.Date(2017, 6, 1, 12, 0, 0, 0, time.UTC)

	loader := NewImageLoader()
	blob := &entities.FirmwareBlob{
		Path:    path,
		Data:    []byte{0xde, 0xad},
		ModTime: stamp,
	}
	if err := loader.Save(blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(loaded.Data, blob.Data) {
		t.Errorf("loaded data = %x, want %x", loaded.Data, blob.Data)
	}
	if !loaded.ModTime.Equal(stamp) {
		t.Errorf("loaded timestamp = %v, want %v", loaded.ModTime, stamp)
	}
}
