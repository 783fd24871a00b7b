// Package scratch manages the per-run scratch directory where build
// artifacts and captured streams live. Everything under it is discarded
// when the grading run ends.
package scratch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Dir is one grading run's scratch directory.
type Dir struct {
	root string
}

// New creates a fresh scratch directory under the system temp dir.
func New() (*Dir, error) {
	root := filepath.Join(os.TempDir(), "hammurabi-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the scratch root path.
func (d *Dir) Root() string {
	return d.root
}

// SolutionDir returns (creating it if needed) the subdirectory owned by one
// solution, which holds its build artifacts and captured streams.
// Decompressed testcase files live in a shared testdata directory instead,
// and named problem input files are copied into the build's ArtifactDir.
func (d *Dir) SolutionDir(solutionID string) (string, error) {
	dir := filepath.Join(d.root, filepath.FromSlash(solutionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create solution scratch dir: %w", err)
	}
	return dir, nil
}

// Materialize returns a plain-file path for a testcase file. Files with a
// .zst suffix are decompressed into the scratch directory once; plain files
// are returned as-is.
func (d *Dir) Materialize(path string) (string, error) {
	if !strings.HasSuffix(path, ".zst") {
		return path, nil
	}

	// Mirror the absolute source path so that equally named testcase files
	// of different problems do not share one decompressed copy.
	abs, err := filepath.Abs(strings.TrimSuffix(path, ".zst"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	target := filepath.Join(d.root, "testdata", abs)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create testdata dir: %w", err)
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	decoder, err := zstd.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer decoder.Close()

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, decoder); err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return target, nil
}

// Cleanup removes the scratch directory and everything under it.
func (d *Dir) Cleanup() error {
	return os.RemoveAll(d.root)
}
