package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofhir/normalizer/service"
)

// Dir loads registry documents from a directory.
type Dir struct {
	root         string
	manifestFile string
}

// NewDir creates a loader rooted at root.
func NewDir(root string, opts ...Option) *Dir {
	o := newOptions(opts)
	return &Dir{root: root, manifestFile: o.manifestFile}
}

// FetchManifest reads the manifest file.
func (d *Dir) FetchManifest(ctx context.Context) ([]byte, error) {
	return d.read(ctx, d.manifestFile)
}

// FetchPayload reads a payload file.
func (d *Dir) FetchPayload(ctx context.Context, name string) ([]byte, error) {
	return d.read(ctx, name)
}

func (d *Dir) read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// resolve maps a document name to a path inside root.
func (d *Dir) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(d.root, clean), nil
}

var _ service.DocumentLoader = (*Dir)(nil)
