package presentation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// DiffStatus classifies a module in a comparison.
type DiffStatus string

const (
	DiffAdded   DiffStatus = "added"
	DiffRemoved DiffStatus = "removed"
	DiffChanged DiffStatus = "changed"
)

// ModuleDiff is the line diff of one module between two indexes.
type ModuleDiff struct {
	Module string
	Status DiffStatus
	Lines  []string // prefixed with "+ ", "- " or "  "
}

// Diff compares two sets of modules and returns a diff for every module that
// was added, removed or changed, sorted by module name. Modules are compared
// by their rendered records, one per line.
func Diff(before, after []implementors.ModuleIndex) []ModuleDiff {
	old := byName(before)
	cur := byName(after)

	names := make([]string, 0, len(old)+len(cur))
	for name := range old {
		names = append(names, name)
	}
	for name := range cur {
		if _, ok := old[name]; !ok {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, cmp.Compare[string])

	var out []ModuleDiff
	for _, name := range names {
		a, inOld := old[name]
		b, inNew := cur[name]
		switch {
		case !inOld:
			out = append(out, ModuleDiff{Module: name, Status: DiffAdded, Lines: lineDiff("", moduleText(b))})
		case !inNew:
			out = append(out, ModuleDiff{Module: name, Status: DiffRemoved, Lines: lineDiff(moduleText(a), "")})
		case !a.Equal(b):
			out = append(out, ModuleDiff{Module: name, Status: DiffChanged, Lines: lineDiff(moduleText(a), moduleText(b))})
		}
	}
	return out
}

// FormatDiff renders diffs as text with a header per module.
func FormatDiff(diffs []ModuleDiff) string {
	var b strings.Builder
	for _, d := range diffs {
		b.WriteString("=== " + d.Module + " (" + string(d.Status) + ")\n")
		for _, line := range d.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func byName(modules []implementors.ModuleIndex) map[string]implementors.ModuleIndex {
	m := make(map[string]implementors.ModuleIndex, len(modules))
	for _, idx := range modules {
		m[idx.Name()] = idx
	}
	return m
}

func moduleText(idx implementors.ModuleIndex) string {
	var b strings.Builder
	for _, r := range idx.Records() {
		b.WriteString(r.String())
		b.WriteString("\n")
	}
	return b.String()
}

// lineDiff runs a line-mode diff and prefixes each line with its operation.
func lineDiff(a, b string) []string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []string
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			line = strings.TrimSuffix(line, "\n")
			if line == "" {
				continue
			}
			out = append(out, prefix+line)
		}
	}
	return out
}
