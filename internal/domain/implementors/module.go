package implementors

import (
	"errors"
	"slices"
	"strings"
)

// Domain errors
var (
	ErrInvalidModuleName   = errors.New("invalid module name")
	ErrDoubleAttachment    = errors.New("consumer already attached")
	ErrDuplicateModule     = errors.New("module already registered")
	ErrNilIntake           = errors.New("intake cannot be nil")
	ErrEmptyInterface      = errors.New("record interface label cannot be empty")
	ErrEmptyImplementor    = errors.New("record implementor label cannot be empty")
	ErrUnknownRelationKind = errors.New("unknown relation kind")
	ErrUnknownPolicy       = errors.New("unknown duplicate policy")
)

// ValidateModuleName returns ErrInvalidModuleName for an empty or blank name.
func ValidateModuleName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidModuleName
	}
	return nil
}

// ModuleIndex holds the implementor records surfaced by one module.
// It is immutable: the constructor and Records both copy.
type ModuleIndex struct {
	name    string
	records []Record
}

// NewModuleIndex creates a module index. A nil or empty records slice is valid and
// means the module documents no implementor relationships.
func NewModuleIndex(name string, records []Record) (ModuleIndex, error) {
	if err := ValidateModuleName(name); err != nil {
		return ModuleIndex{}, err
	}
	return ModuleIndex{name: name, records: slices.Clone(records)}, nil
}

// Name returns the module name
func (m ModuleIndex) Name() string {
	return m.name
}

// Records returns a copy of the module's records in their original order
func (m ModuleIndex) Records() []Record {
	return slices.Clone(m.records)
}

// Len returns the number of records
func (m ModuleIndex) Len() int {
	return len(m.records)
}

// Equal reports whether both indexes have the same name and records.
func (m ModuleIndex) Equal(o ModuleIndex) bool {
	return m.name == o.name && RecordsEqual(m.records, o.records)
}

// Contains reports whether an equal record is already present.
func (m ModuleIndex) Contains(r Record) bool {
	return slices.ContainsFunc(m.records, r.Equal)
}
