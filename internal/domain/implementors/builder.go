package implementors

// RecordBuilder provides a fluent API for creating records
type RecordBuilder struct {
	iface  ItemRef
	impl   ItemRef
	kind   RelationKind
	bounds []string
}

// NewRecordBuilder creates a builder for a record on the given interface
func NewRecordBuilder(label, link string) *RecordBuilder {
	return &RecordBuilder{
		iface: ItemRef{Label: label, Link: link},
	}
}

// Implementor sets the implementing type
func (b *RecordBuilder) Implementor(label, link string) *RecordBuilder {
	b.impl = ItemRef{Label: label, Link: link}
	return b
}

// Kind sets the relation kind (default KindDirect)
func (b *RecordBuilder) Kind(k RelationKind) *RecordBuilder {
	b.kind = k
	return b
}

// Bounds sets the type parameter constraints
func (b *RecordBuilder) Bounds(bounds ...string) *RecordBuilder {
	b.bounds = bounds
	return b
}

// Build creates the record, validating required fields
func (b *RecordBuilder) Build() (Record, error) {
	return NewRecord(b.iface, b.impl, Relation{Kind: b.kind, Bounds: b.bounds})
}
