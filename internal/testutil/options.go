package testutil

import "github.com/zjrosen/implindex/internal/domain/implementors"

// RecordData describes one implementor record to be written into a fragment.
type RecordData struct {
	iface           string
	ifaceLink       string
	implementor     string
	implementorLink string
	kind            implementors.RelationKind
	bounds          []string
}

// RecordOption customizes a RecordData.
type RecordOption func(*RecordData)

// Rec creates a direct record of iface implemented by impl.
func Rec(iface, impl string, opts ...RecordOption) RecordData {
	r := RecordData{iface: iface, implementor: impl, kind: implementors.KindDirect}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Links sets the documentation links of both sides.
func Links(ifaceLink, implLink string) RecordOption {
	return func(r *RecordData) {
		r.ifaceLink = ifaceLink
		r.implementorLink = implLink
	}
}

// Kind sets the relation kind.
func Kind(k implementors.RelationKind) RecordOption {
	return func(r *RecordData) { r.kind = k }
}

// Blanket marks the record as a blanket implementation with the given bounds.
func Blanket(bounds ...string) RecordOption {
	return func(r *RecordData) {
		r.kind = implementors.KindBlanket
		r.bounds = bounds
	}
}

// Bounds sets the where-clause bounds.
func Bounds(bounds ...string) RecordOption {
	return func(r *RecordData) { r.bounds = bounds }
}

func (r RecordData) build() (implementors.Record, error) {
	return implementors.NewRecordBuilder(r.iface, r.ifaceLink).
		Implementor(r.implementor, r.implementorLink).
		Kind(r.kind).
		Bounds(r.bounds...).
		Build()
}
