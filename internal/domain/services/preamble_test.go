package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// fakeVboot plays both the verifier and re-signer roles.
type fakeVboot struct {
	report    string
	verifyErr error

	resignedIn    string
	resignedOut   string
	resignedFlags uint32
}

func (f *fakeVboot) VerifyFirmware(_ context.Context, _ string) (string, error) {
	return f.report, f.verifyErr
}

func (f *fakeVboot) Resign(_ context.Context, inPath, outPath string, flags uint32) error {
	f.resignedIn = inPath
	f.resignedOut = outPath
	f.resignedFlags = flags
	// Emulate the external re-signer producing the output image.
	return os.WriteFile(outPath, []byte("resigned"), 0o600)
}

func TestGetFlags(t *testing.T) {
	tests := []struct {
		name       string
		report     string
		want       uint32
		wantReason entities.PackReason
	}{
		{
			name:   "single flags line",
			report: "Key block:\n  Size: 2232\nPreamble flags:          1\nBody verification succeeded.\n",
			want:   1,
		},
		{
			name:   "rw image with zero flags",
			report: "Preamble flags:          0\n",
			want:   0,
		},
		{
			name:       "no flags line",
			report:     "Body verification succeeded.\n",
			wantReason: entities.ReasonFlagRead,
		},
		{
			name:       "two flags lines",
			report:     "Preamble flags: 1\nPreamble flags: 1\n",
			wantReason: entities.ReasonFlagRead,
		},
		{
			name:       "unparseable value",
			report:     "Preamble flags: banana\n",
			wantReason: entities.ReasonFlagRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewPreambleFlagState(&fakeVboot{report: tt.report}, &fakeVboot{})
			flags, err := state.GetFlags(context.Background(), "image.bin")
			if tt.wantReason != "" {
				if !entities.IsReason(err, tt.wantReason) {
					t.Fatalf("GetFlags error = %v, want reason %v", err, tt.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetFlags failed: %v", err)
			}
			if flags != tt.want {
				t.Errorf("flags = %d, want %d", flags, tt.want)
			}
		})
	}
}

func TestGetFlagsVerifierError(t *testing.T) {
	state := NewPreambleFlagState(&fakeVboot{verifyErr: errors.New("boom")}, &fakeVboot{})
	if _, err := state.GetFlags(context.Background(), "image.bin"); err == nil {
		t.Fatalf("GetFlags succeeded, want verifier error")
	}
}

func TestCreateRWFromRO(t *testing.T) {
	tmpDir := t.TempDir()
	roPath := filepath.Join(tmpDir, "bios.bin")
	rwPath := filepath.Join(tmpDir, "bios_rw.bin")
	if err := os.WriteFile(roPath, []byte("ro image"), 0o600); err != nil {
		t.Fatalf("write RO image: %v", err)
	}
	stamp := time.Date(2017, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := os.Chtimes(roPath, stamp, stamp); err != nil {
		t.Fatalf("set RO timestamp: %v", err)
	}

	vboot := &fakeVboot{report: "Preamble flags: 1\n"}
	state := NewPreambleFlagState(vboot, vboot)

	if err := state.CreateRWFromRO(context.Background(), roPath, rwPath); err != nil {
		t.Fatalf("CreateRWFromRO failed: %v", err)
	}
	if vboot.resignedFlags != 0 {
		t.Errorf("re-signed with flags %d, want 0", vboot.resignedFlags)
	}
	if vboot.resignedIn != roPath || vboot.resignedOut != rwPath {
		t.Errorf("re-signed %s -> %s, want %s -> %s",
			vboot.resignedIn, vboot.resignedOut, roPath, rwPath)
	}

	// The RW image carries the RO image's timestamp.
	info, err := os.Stat(rwPath)
	if err != nil {
		t.Fatalf("stat RW image: %v", err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("RW timestamp = %v, want %v", info.ModTime(), stamp)
	}
}

func TestCreateRWFromRONotRONormal(t *testing.T) {
	vboot := &fakeVboot{report: "Preamble flags: 0\n"}
	state := NewPreambleFlagState(vboot, vboot)

	err := state.CreateRWFromRO(context.Background(), "in.bin", "out.bin")
	if !entities.IsReason(err, entities.ReasonNotReadOnlyFirmware) {
		t.Fatalf("CreateRWFromRO error = %v, want ReasonNotReadOnlyFirmware", err)
	}
	if vboot.resignedOut != "" {
		t.Errorf("re-signer invoked despite RO check failure")
	}
}

func TestCreateRWFromROPreservesOtherFlagBits(t *testing.T) {
	vboot := &fakeVboot{report: "Preamble flags: 5\n"}
	state := NewPreambleFlagState(vboot, vboot)

	tmpDir := t.TempDir()
	roPath := filepath.Join(tmpDir, "bios.bin")
	if err := os.WriteFile(roPath, []byte("ro"), 0o600); err != nil {
		t.Fatalf("write RO image: %v", err)
	}

	if err := state.CreateRWFromRO(context.Background(), roPath,
		filepath.Join(tmpDir, "bios_rw.bin")); err != nil {
		t.Fatalf("CreateRWFromRO failed: %v", err)
	}
	// Only bit 0 flips; bit 2 stays set.
	if vboot.resignedFlags != 4 {
		t.Errorf("re-signed with flags %d, want 4", vboot.resignedFlags)
	}
}

func TestAssertIsRW(t *testing.T) {
	rw := NewPreambleFlagState(&fakeVboot{report: "Preamble flags: 0\n"}, &fakeVboot{})
	if err := rw.AssertIsRW(context.Background(), "rw.bin"); err != nil {
		t.Errorf("AssertIsRW on RW image failed: %v", err)
	}

	ro := NewPreambleFlagState(&fakeVboot{report: "Preamble flags: 1\n"}, &fakeVboot{})
	err := ro.AssertIsRW(context.Background(), "ro.bin")
	if !entities.IsReason(err, entities.ReasonNotReadWriteFirmware) {
		t.Errorf("AssertIsRW error = %v, want ReasonNotReadWriteFirmware", err)
	}
}
