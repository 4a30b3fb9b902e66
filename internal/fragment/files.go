package fragment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/log"
)

// FileName returns the per-module file name for a fragment, replacing every
// character outside [A-Za-z0-9._-] with '_'.
func FileName(module string, format Format) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, module)
	return safe + format.Extension()
}

// WriteFile writes one module's fragment to path.
func WriteFile(path string, format Format, idx implementors.ModuleIndex, buildID string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is built from the export directory
	if err != nil {
		return fmt.Errorf("create fragment %s: %w", path, err)
	}
	if err := Encode(f, format, idx, buildID); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode fragment %s: %w", path, err)
	}
	return f.Close()
}

// WriteDir writes one fragment file per module into dir, creating it if needed.
// Returns the written paths in module order.
func WriteDir(dir string, format Format, modules []implementors.ModuleIndex, buildID string) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create fragment directory: %w", err)
	}

	paths := make([]string, 0, len(modules))
	for _, idx := range modules {
		path := filepath.Join(dir, FileName(idx.Name(), format))
		if err := WriteFile(path, format, idx, buildID); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	log.Info(log.CatFragment, "fragments written", "dir", dir, "format", format, "count", len(paths))
	return paths, nil
}

// ReadFile decodes the fragment at path, choosing the format from its extension.
func ReadFile(path string) (implementors.ModuleIndex, string, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return implementors.ModuleIndex{}, "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
	f, err := os.Open(path) //nolint:gosec // G304: fragment paths come from the configured directory
	if err != nil {
		return implementors.ModuleIndex{}, "", err
	}
	defer f.Close()
	return Decode(f, format)
}
