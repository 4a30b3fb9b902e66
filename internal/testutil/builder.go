// Package testutil builds fragment directories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/fragment"
)

type rawFile struct {
	name string
	data []byte
}

// Builder accumulates modules and writes them as fragment files.
type Builder struct {
	t       *testing.T
	dir     string
	format  fragment.Format
	buildID string
	modules []implementors.ModuleIndex
	raw     []rawFile
}

// NewBuilder creates a builder writing JSON fragments into a fresh temp dir.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t, dir: t.TempDir(), format: fragment.FormatJSON}
}

// InDir writes into dir instead of a temp dir.
func (b *Builder) InDir(dir string) *Builder {
	b.dir = dir
	return b
}

// Format selects the fragment encoding.
func (b *Builder) Format(f fragment.Format) *Builder {
	b.format = f
	return b
}

// BuildID stamps every fragment with id.
func (b *Builder) BuildID(id string) *Builder {
	b.buildID = id
	return b
}

// WithModule adds a module with the given records.
func (b *Builder) WithModule(name string, records ...RecordData) *Builder {
	b.t.Helper()
	b.modules = append(b.modules, Module(b.t, name, records...))
	return b
}

// WithRawFile adds a file written verbatim, e.g. a corrupt fragment.
func (b *Builder) WithRawFile(name string, data []byte) *Builder {
	b.raw = append(b.raw, rawFile{name: name, data: data})
	return b
}

// Modules returns the modules added so far, in insertion order.
func (b *Builder) Modules() []implementors.ModuleIndex {
	return b.modules
}

// Build writes every fragment and returns the directory.
func (b *Builder) Build() string {
	b.t.Helper()
	_, err := fragment.WriteDir(b.dir, b.format, b.modules, b.buildID)
	require.NoError(b.t, err)
	for _, f := range b.raw {
		require.NoError(b.t, os.WriteFile(filepath.Join(b.dir, f.name), f.data, 0o600))
	}
	return b.dir
}

// Records converts record descriptions into domain records.
func Records(t *testing.T, records ...RecordData) []implementors.Record {
	t.Helper()
	out := make([]implementors.Record, 0, len(records))
	for _, r := range records {
		rec, err := r.build()
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

// Module builds a module index from record descriptions.
func Module(t *testing.T, name string, records ...RecordData) implementors.ModuleIndex {
	t.Helper()
	idx, err := implementors.NewModuleIndex(name, Records(t, records...))
	require.NoError(t, err)
	return idx
}
