package gateways

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// BundlePackager stages the files of an update package and bundles the
// staging tree into a distributable tar.gz. The self-extracting script
// wrapper is a downstream concern; the bundle carries everything it
// repacks.
type BundlePackager struct{}

// NewBundlePackager creates a new bundle packager
func NewBundlePackager() *BundlePackager {
	return &BundlePackager{}
}

// CopyExecutable copies src into dst (a file or directory), forcing the
// executable bits on.
func (p *BundlePackager) CopyExecutable(src, dst string) error {
	return p.copyWithMode(src, dst, 0o555)
}

// CopyReadable copies src into dst (a file or directory), forcing the
// world-readable bits on.
func (p *BundlePackager) CopyReadable(src, dst string) error {
	return p.copyWithMode(src, dst, 0o444)
}

func (p *BundlePackager) copyWithMode(src, dst string, extraMode os.FileMode) error {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dst, err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()|extraMode); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	return nil
}

// Bundle creates a gzipped tar archive of the staging directory.
func (p *BundlePackager) Bundle(stagingDir, bundlePath string) error {
	if err := os.MkdirAll(filepath.Dir(bundlePath), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: bundle path is the configured build output
	file, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to create bundle file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	//nolint:errcheck // Defer close
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	//nolint:errcheck // Defer close
	defer tarWriter.Close()

	err = filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}

		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}
		header.Name = relPath

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		//nolint:gosec // G304: file path from filepath.Walk over the staging area
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		//nolint:errcheck // Defer close
		defer f.Close()

		if _, err := io.Copy(tarWriter, f); err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return file.Close()
}
