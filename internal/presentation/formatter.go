package presentation

import (
	"encoding/json"
	"io"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatIndex formats an index as JSON
func (f *Formatter) FormatIndex(index IndexDTO) error {
	return f.FormatResult(index)
}

// FormatHits formats query hits as JSON
func (f *Formatter) FormatHits(hits []HitDTO) error {
	return f.FormatResult(hits)
}

// FormatResult formats any value as indented JSON
func (f *Formatter) FormatResult(result any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
