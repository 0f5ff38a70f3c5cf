package gateways

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// bcsPrefix marks a content-addressed archive reference resolved from
// the local archive directory instead of a plain path.
const bcsPrefix = "bcs://"

// ImageResolver turns an image reference from the build configuration
// into a local file. References are either template-substituted local
// paths or bcs:// single-entry archive references.
type ImageResolver struct {
	archiveDir string
}

// NewImageResolver creates a new image resolver. archiveDir is where
// bcs:// archives live.
func NewImageResolver(archiveDir string) *ImageResolver {
	return &ImageResolver{archiveDir: archiveDir}
}

// Resolve returns a local path for the reference, unpacking archive
// references into destDir. ${MODEL} in plain paths is substituted with
// the model name.
func (r *ImageResolver) Resolve(_ context.Context, ref, model, destDir string) (string, error) {
	if !strings.HasPrefix(ref, bcsPrefix) {
		return strings.ReplaceAll(ref, "${MODEL}", model), nil
	}

	name := strings.TrimPrefix(ref, bcsPrefix)
	archivePath := filepath.Join(r.archiveDir, name)
	if _, err := os.Stat(archivePath); err != nil {
		return "", entities.NewPackError(entities.ReasonBadImageRef,
			"archive %s for reference %s not found in %s", name, ref, r.archiveDir)
	}

	switch {
	case strings.HasSuffix(name, ".tbz2"), strings.HasSuffix(name, ".tar.bz2"):
		return extractSingleEntry(archivePath, destDir, func(f io.Reader) (io.Reader, error) {
			return bzip2.NewReader(f), nil
		})
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractSingleEntry(archivePath, destDir, func(f io.Reader) (io.Reader, error) {
			return gzip.NewReader(f)
		})
	default:
		// Uncompressed reference: the archive entry is the image.
		dest := filepath.Join(destDir, filepath.Base(name))
		if err := copyFile(archivePath, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
}

// extractSingleEntry unpacks the one regular file a firmware archive
// reference is required to contain.
func extractSingleEntry(archivePath, destDir string,
	decompress func(io.Reader) (io.Reader, error)) (string, error) {
	//nolint:gosec // G304: archive path comes from the build configuration
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	raw, err := decompress(f)
	if err != nil {
		return "", fmt.Errorf("decompress archive %s: %w", archivePath, err)
	}

	tr := tar.NewReader(raw)
	var extracted string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read archive %s: %w", archivePath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if extracted != "" {
			return "", entities.NewPackError(entities.ReasonBadImageRef,
				"archive %s contains more than one file", archivePath)
		}
		dest := filepath.Join(destDir, filepath.Base(hdr.Name))
		//nolint:gosec // G304: destination is inside the scoped working area
		out, err := os.Create(dest)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", dest, err)
		}
		//nolint:gosec // G110: firmware archives are build inputs of bounded size
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return "", fmt.Errorf("extract %s: %w", hdr.Name, err)
		}
		if err := out.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", dest, err)
		}
		if err := os.Chtimes(dest, hdr.ModTime, hdr.ModTime); err != nil {
			return "", fmt.Errorf("set timestamp of %s: %w", dest, err)
		}
		extracted = dest
	}
	if extracted == "" {
		return "", entities.NewPackError(entities.ReasonBadImageRef,
			"archive %s contains no file", archivePath)
	}
	return extracted, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
