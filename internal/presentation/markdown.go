package presentation

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// noMarginStyle is a JSON style that removes document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// ModuleMarkdown renders a module's implementors as a markdown page, one
// section per interface in label order. Records keep their stored order
// within a section.
func ModuleMarkdown(idx implementors.ModuleIndex) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", idx.Name())

	records := idx.Records()
	if len(records) == 0 {
		b.WriteString("_No implementors._\n")
		return b.String()
	}

	groups := make(map[string][]implementors.Record)
	var ifaces []implementors.ItemRef
	for _, r := range records {
		label := r.Interface().Label
		if _, ok := groups[label]; !ok {
			ifaces = append(ifaces, r.Interface())
		}
		groups[label] = append(groups[label], r)
	}
	slices.SortFunc(ifaces, func(a, b implementors.ItemRef) int {
		return cmp.Compare(a.Label, b.Label)
	})

	for _, iface := range ifaces {
		fmt.Fprintf(&b, "## %s\n\n", link(iface))
		for _, r := range groups[iface.Label] {
			fmt.Fprintf(&b, "- %s\n", recordLine(r))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func recordLine(r implementors.Record) string {
	rel := r.Relation()
	line := "`" + r.String() + "`"
	if r.Implementor().Link != "" {
		line += " ([" + r.Implementor().Label + "](" + r.Implementor().Link + "))"
	}
	if rel.Kind != implementors.KindDirect {
		line += " _" + rel.Kind.String() + "_"
	}
	return line
}

func link(ref implementors.ItemRef) string {
	if ref.Link == "" {
		return ref.Label
	}
	return "[" + ref.Label + "](" + ref.Link + ")"
}

// Renderer wraps glamour for terminal output.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewRenderer creates a markdown renderer with the given width and style.
// style should be "dark", "light" or "notty". Defaults to "dark" if empty.
func NewRenderer(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render transforms markdown to styled terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}
