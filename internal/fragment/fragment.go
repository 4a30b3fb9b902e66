// Package fragment encodes and decodes per-module implementor fragments.
//
// A fragment is the persisted form of one module's registration: it can be
// written, shipped and loaded independently of every other module. Three
// encodings are supported and selected by file extension: JSON (.json), YAML
// (.yaml, .yml) and MessagePack (.msgpack, .mp).
package fragment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// Fragment errors
var (
	ErrUnknownFormat = errors.New("unknown fragment format")
	ErrEmptyFragment = errors.New("fragment is empty")
)

// Format is a fragment encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatMsgpack}

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatMsgpack, "mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return ".yaml"
	case FormatMsgpack:
		return ".msgpack"
	default:
		return ".json"
	}
}

// DetectFormat returns the format implied by a file name's extension.
// ok is false for files that are not fragments.
func DetectFormat(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".msgpack", ".mp":
		return FormatMsgpack, true
	default:
		return "", false
	}
}

// Fragment is the wire structure of one module's registration.
type Fragment struct {
	Module  string      `json:"module" yaml:"module" msgpack:"module"`
	BuildID string      `json:"build_id,omitempty" yaml:"build_id,omitempty" msgpack:"build_id,omitempty"`
	Records []RecordDTO `json:"implementors" yaml:"implementors" msgpack:"implementors"`
}

// RecordDTO is the wire structure of one implementor record.
type RecordDTO struct {
	Interface     string   `json:"interface" yaml:"interface" msgpack:"interface"`
	InterfaceLink string   `json:"interface_link,omitempty" yaml:"interface_link,omitempty" msgpack:"interface_link,omitempty"`
	Type          string   `json:"type" yaml:"type" msgpack:"type"`
	TypeLink      string   `json:"type_link,omitempty" yaml:"type_link,omitempty" msgpack:"type_link,omitempty"`
	Kind          string   `json:"kind,omitempty" yaml:"kind,omitempty" msgpack:"kind,omitempty"`
	Bounds        []string `json:"bounds,omitempty" yaml:"bounds,omitempty" msgpack:"bounds,omitempty"`
}

// FromDomain converts a module index into its wire form.
func FromDomain(idx implementors.ModuleIndex, buildID string) Fragment {
	records := idx.Records()
	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		rel := r.Relation()
		kind := ""
		if rel.Kind != implementors.KindDirect {
			kind = rel.Kind.String()
		}
		dtos[i] = RecordDTO{
			Interface:     r.Interface().Label,
			InterfaceLink: r.Interface().Link,
			Type:          r.Implementor().Label,
			TypeLink:      r.Implementor().Link,
			Kind:          kind,
			Bounds:        rel.Bounds,
		}
	}
	return Fragment{Module: idx.Name(), BuildID: buildID, Records: dtos}
}

// ToDomain validates the fragment and converts it into a module index.
func (f Fragment) ToDomain() (implementors.ModuleIndex, error) {
	records := make([]implementors.Record, 0, len(f.Records))
	for i, dto := range f.Records {
		kind, err := implementors.ParseRelationKind(dto.Kind)
		if err != nil {
			return implementors.ModuleIndex{}, fmt.Errorf("record %d: %w", i, err)
		}
		r, err := implementors.NewRecord(
			implementors.ItemRef{Label: dto.Interface, Link: dto.InterfaceLink},
			implementors.ItemRef{Label: dto.Type, Link: dto.TypeLink},
			implementors.Relation{Kind: kind, Bounds: dto.Bounds},
		)
		if err != nil {
			return implementors.ModuleIndex{}, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return implementors.NewModuleIndex(f.Module, records)
}

// Encode writes one module's fragment to w.
func Encode(w io.Writer, format Format, idx implementors.ModuleIndex, buildID string) error {
	frag := FromDomain(idx, buildID)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(frag)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(frag); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(frag)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode reads one fragment from r. It returns the module index and the build ID
// the fragment was produced by (empty if absent).
func Decode(r io.Reader, format Format) (implementors.ModuleIndex, string, error) {
	var frag Fragment
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&frag)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&frag)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&frag)
	default:
		return implementors.ModuleIndex{}, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if errors.Is(err, io.EOF) {
		return implementors.ModuleIndex{}, "", ErrEmptyFragment
	}
	if err != nil {
		return implementors.ModuleIndex{}, "", fmt.Errorf("decode %s fragment: %w", format, err)
	}

	idx, err := frag.ToDomain()
	if err != nil {
		return implementors.ModuleIndex{}, "", err
	}
	return idx, frag.BuildID, nil
}
