// Package presentation converts the assembled index into output forms: JSON
// DTOs, markdown pages and text diffs.
package presentation

import (
	"github.com/zjrosen/implindex/internal/consumer"
	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// IndexDTO is the JSON form of a whole index.
type IndexDTO struct {
	BuildID string      `json:"build_id,omitempty"`
	Modules []ModuleDTO `json:"modules"`
}

// ModuleDTO represents one module's implementor records
type ModuleDTO struct {
	Name    string      `json:"name"`
	Records []RecordDTO `json:"implementors"` // always present, possibly empty
}

// RecordDTO represents a single implementor relationship
type RecordDTO struct {
	Interface       string   `json:"interface"`
	InterfaceLink   string   `json:"interface_link,omitempty"`
	Implementor     string   `json:"implementor"`
	ImplementorLink string   `json:"implementor_link,omitempty"`
	Kind            string   `json:"kind"`
	Bounds          []string `json:"bounds,omitempty"`
	Display         string   `json:"display"`
}

// HitDTO is a record found by a cross-module query.
type HitDTO struct {
	Module string    `json:"module"`
	Record RecordDTO `json:"record"`
}

// FromDomainRecord converts a domain record to a DTO.
func FromDomainRecord(r implementors.Record) RecordDTO {
	rel := r.Relation()
	return RecordDTO{
		Interface:       r.Interface().Label,
		InterfaceLink:   r.Interface().Link,
		Implementor:     r.Implementor().Label,
		ImplementorLink: r.Implementor().Link,
		Kind:            rel.Kind.String(),
		Bounds:          rel.Bounds,
		Display:         r.String(),
	}
}

// FromDomainModule converts a module index to a DTO
func FromDomainModule(idx implementors.ModuleIndex) ModuleDTO {
	records := idx.Records()
	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		dtos[i] = FromDomainRecord(r)
	}
	return ModuleDTO{Name: idx.Name(), Records: dtos}
}

// FromDomainModules converts a slice of module indexes to an IndexDTO
func FromDomainModules(buildID string, modules []implementors.ModuleIndex) IndexDTO {
	dtos := make([]ModuleDTO, len(modules))
	for i, m := range modules {
		dtos[i] = FromDomainModule(m)
	}
	return IndexDTO{BuildID: buildID, Modules: dtos}
}

// FromHits converts query hits to DTOs
func FromHits(hits []consumer.Hit) []HitDTO {
	dtos := make([]HitDTO, len(hits))
	for i, h := range hits {
		dtos[i] = HitDTO{Module: h.Module, Record: FromDomainRecord(h.Record)}
	}
	return dtos
}
