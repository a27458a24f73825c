package main

import (
	"github.com/jward/garnet/internal/completion"
	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/store"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a 0-based source range.
type CLILocation struct {
	File      string `json:"file"`
	Name      string `json:"name,omitempty"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIDeclaration is a JSON-friendly declaration.
type CLIDeclaration struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Visibility string `json:"visibility"`
	Singleton  bool   `json:"singleton,omitempty"`
	Type       string `json:"type,omitempty"`
	Comment    string `json:"comment,omitempty"`
	File       string `json:"file,omitempty"`
	StartLine  int    `json:"start_line"`
	StartCol   int    `json:"start_col"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	File      string   `json:"file"`
	Severity  string   `json:"severity"`
	Category  string   `json:"category"`
	Message   string   `json:"message"`
	Notes     []string `json:"notes,omitempty"`
	StartLine int      `json:"start_line"`
	StartCol  int      `json:"start_col"`
	EndLine   int      `json:"end_line"`
	EndCol    int      `json:"end_col"`
}

// CLICompletion is the result of the complete command.
type CLICompletion struct {
	Kind   string               `json:"kind"`
	Items  []CLICompletionItem  `json:"items"`
	Groups []CLICompletionGroup `json:"groups,omitempty"`
}

type CLICompletionItem struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Insert string `json:"insert,omitempty"`
}

type CLICompletionGroup struct {
	Name     string              `json:"name"`
	Priority int                 `json:"priority"`
	Items    []CLICompletionItem `json:"items"`
}

// CLIImport is a require, include or extend edge.
type CLIImport struct {
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Resolved bool   `json:"resolved"`
}

// CLIIndexSummary reports what an index or analyze run published.
type CLIIndexSummary struct {
	Root        string         `json:"root,omitempty"`
	Units       int            `json:"units"`
	Diagnostics map[string]int `json:"diagnostics"`
	Unresolved  int            `json:"unresolved"`
	Database    string         `json:"database"`
}

func storeDeclarationToCLI(d *store.Declaration) CLIDeclaration {
	return CLIDeclaration{
		Name:       d.Name,
		Identifier: d.Identifier,
		Kind:       d.Kind,
		Visibility: d.Visibility,
		Singleton:  d.Singleton,
		Type:       d.TypeText,
		Comment:    d.Comment,
		File:       d.Path,
		StartLine:  d.StartLine,
		StartCol:   d.StartCol,
	}
}

func storeDiagnosticToCLI(d *store.Diagnostic) CLIDiagnostic {
	out := CLIDiagnostic{
		File:      d.Path,
		Severity:  d.Severity,
		Category:  d.Category,
		Message:   d.Message,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	}
	for _, n := range d.Notes {
		out.Notes = append(out.Notes, n.Msg)
	}
	return out
}

func diagnosticToCLI(d diag.Diagnostic) CLIDiagnostic {
	out := CLIDiagnostic{
		File:      d.Unit,
		Severity:  d.Severity.String(),
		Category:  d.Category.String(),
		Message:   d.Message,
		StartLine: d.Range.Start.Line,
		StartCol:  d.Range.Start.Column,
		EndLine:   d.Range.End.Line,
		EndCol:    d.Range.End.Column,
	}
	for _, n := range d.Notes {
		out.Notes = append(out.Notes, n.Msg)
	}
	return out
}

func completionToCLI(res completion.Result) CLICompletion {
	out := CLICompletion{Kind: res.Kind.String(), Items: itemsToCLI(res.Items)}
	for _, g := range res.Groups {
		out.Groups = append(out.Groups, CLICompletionGroup{Name: g.Name, Priority: g.Priority, Items: itemsToCLI(g.Items)})
	}
	return out
}

func itemsToCLI(items []completion.Item) []CLICompletionItem {
	out := make([]CLICompletionItem, 0, len(items))
	for _, it := range items {
		out = append(out, CLICompletionItem{Label: it.Label, Detail: it.Detail, Insert: it.Insert})
	}
	return out
}
