package implementors

import (
	"fmt"
	"slices"
	"strings"
)

// ItemRef identifies a documented item by its display label and the link target
// a renderer resolves it to.
type ItemRef struct {
	Label string // e.g., "Debug"
	Link  string // e.g., "core/fmt/trait.Debug.html"
}

// IsZero reports whether the reference carries no label and no link.
func (r ItemRef) IsZero() bool {
	return r.Label == "" && r.Link == ""
}

// String returns the label, falling back to the link.
func (r ItemRef) String() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Link
}

// RelationKind describes how an implementing type satisfies an interface.
type RelationKind int

const (
	// KindDirect is a plain implementation for one concrete type.
	KindDirect RelationKind = iota
	// KindBlanket is a generic implementation covering every type that meets its bounds.
	KindBlanket
	// KindConditional applies only when the implementor's type parameters meet the bounds.
	KindConditional
	// KindSynthetic is derived automatically by the compiler (auto traits).
	KindSynthetic
	// KindNegative records an explicit non-implementation.
	KindNegative
)

var relationKindNames = []string{"direct", "blanket", "conditional", "synthetic", "negative"}

// String returns the lower-case name of the kind.
func (k RelationKind) String() string {
	if int(k) < 0 || int(k) >= len(relationKindNames) {
		return "unknown"
	}
	return relationKindNames[k]
}

// ParseRelationKind converts a name produced by String back into a RelationKind.
// An empty string parses as KindDirect.
func ParseRelationKind(s string) (RelationKind, error) {
	if s == "" {
		return KindDirect, nil
	}
	for i, name := range relationKindNames {
		if strings.EqualFold(s, name) {
			return RelationKind(i), nil
		}
	}
	return KindDirect, fmt.Errorf("%w: %q", ErrUnknownRelationKind, s)
}

// Relation is the structural descriptor of an implementation.
type Relation struct {
	Kind   RelationKind
	Bounds []string // type parameter constraints, e.g. ["T: Display"]
}

// Equal reports whether two relations have the same kind and bounds.
func (r Relation) Equal(o Relation) bool {
	return r.Kind == o.Kind && slices.Equal(r.Bounds, o.Bounds)
}

// Record is a single (interface, implementing type) satisfaction relationship.
type Record struct {
	iface    ItemRef
	impl     ItemRef
	relation Relation
}

// NewRecord creates a record. Bounds are copied so the record never aliases
// caller-owned memory.
func NewRecord(iface, impl ItemRef, relation Relation) (Record, error) {
	if iface.Label == "" {
		return Record{}, ErrEmptyInterface
	}
	if impl.Label == "" {
		return Record{}, ErrEmptyImplementor
	}
	relation.Bounds = slices.Clone(relation.Bounds)
	return Record{iface: iface, impl: impl, relation: relation}, nil
}

// MustRecord is NewRecord for statically known inputs. It panics on invalid input.
func MustRecord(iface, impl ItemRef, relation Relation) Record {
	r, err := NewRecord(iface, impl, relation)
	if err != nil {
		panic(err)
	}
	return r
}

// Interface returns the interface side of the relationship.
func (r Record) Interface() ItemRef {
	return r.iface
}

// Implementor returns the implementing type.
func (r Record) Implementor() ItemRef {
	return r.impl
}

// Relation returns the structural descriptor. The bounds slice is a copy.
func (r Record) Relation() Relation {
	return Relation{Kind: r.relation.Kind, Bounds: slices.Clone(r.relation.Bounds)}
}

// Equal reports whether two records describe the same relationship.
func (r Record) Equal(o Record) bool {
	return r.iface == o.iface && r.impl == o.impl && r.relation.Equal(o.relation)
}

// String renders the record the way it reads in documentation, e.g.
// "impl Display for Wrapper<T> where T: Display".
func (r Record) String() string {
	var b strings.Builder
	if r.relation.Kind == KindNegative {
		fmt.Fprintf(&b, "impl !%s for %s", r.iface, r.impl)
	} else {
		fmt.Fprintf(&b, "impl %s for %s", r.iface, r.impl)
	}
	if len(r.relation.Bounds) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(r.relation.Bounds, ", "))
	}
	return b.String()
}

// RecordsEqual compares two record sequences element by element.
func RecordsEqual(a, b []Record) bool {
	return slices.EqualFunc(a, b, Record.Equal)
}

// Intake receives one module's records. Consumers expose a function of this
// shape; the handoff calls it once per delivered module.
type Intake func(module string, records []Record)
