// Package diag holds the diagnostics produced while analyzing a unit.
package diag

import (
	"fmt"

	"github.com/jward/garnet/internal/syntax"
)

// Severity orders diagnostics from least to most serious.
type Severity uint8

const (
	Hint Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Hint:
		return "hint"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", s)
	}
}

// Category tells parser problems apart from semantic-analysis findings.
type Category uint8

const (
	Semantic Category = iota
	Parser
)

func (c Category) String() string {
	if c == Parser {
		return "parser"
	}
	return "semantic"
}

type Note struct {
	Range syntax.Range
	Msg   string
}

type Diagnostic struct {
	Severity Severity
	Category Category
	Message  string
	Unit     string
	Range    syntax.Range
	Notes    []Note
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Unit, d.Range.Start.Line, d.Range.Start.Column, d.Severity, d.Message)
}

// Reporter receives diagnostics from an analysis pass.
type Reporter interface {
	Report(d Diagnostic)
}

// Bag collects diagnostics in report order.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Report(d Diagnostic) {
	b.items = append(b.items, d)
}

// Items returns the collected diagnostics.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether any diagnostic has Error severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Builder accumulates a diagnostic before emitting it to a Reporter.
type Builder struct {
	r Reporter
	d Diagnostic
}

// New starts a diagnostic bound to r.
func New(r Reporter, sev Severity, cat Category, unit string, at syntax.Range, msg string) *Builder {
	return &Builder{r: r, d: Diagnostic{Severity: sev, Category: cat, Message: msg, Unit: unit, Range: at}}
}

// WithNote appends a note.
func (b *Builder) WithNote(at syntax.Range, msg string) *Builder {
	b.d.Notes = append(b.d.Notes, Note{Range: at, Msg: msg})
	return b
}

// Emit sends the diagnostic.
func (b *Builder) Emit() {
	if b.r != nil {
		b.r.Report(b.d)
	}
}
