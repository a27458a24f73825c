package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	hintColor    = color.New(color.FgCyan)
)

// severityLabel colours a diagnostic severity for text output. Colour is
// dropped automatically when stdout is not a terminal.
func severityLabel(severity string) string {
	switch severity {
	case "error":
		return errorColor.Sprint(severity)
	case "warning":
		return warningColor.Sprint(severity)
	case "hint":
		return hintColor.Sprint(severity)
	default:
		return severity
	}
}

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		if loc.Name != "" {
			fmt.Fprintf(w, "%s:%d:%d %s\n", loc.File, loc.StartLine, loc.StartCol, loc.Name)
			continue
		}
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatDeclarationsText formats CLIDeclaration results as aligned columns.
func formatDeclarationsText(w io.Writer, decls []CLIDeclaration) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVISIBILITY\tTYPE\tLINE")
	for _, d := range decls {
		name := d.Name
		if d.Singleton {
			name = "self." + name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", name, d.Kind, d.Visibility, d.Type, d.StartLine)
	}
	tw.Flush()
}

// formatDiagnosticsText writes one "file:line:col: severity: message" line
// per diagnostic, with notes indented below.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", d.File, d.StartLine, d.StartCol, severityLabel(d.Severity), d.Message)
		for _, n := range d.Notes {
			fmt.Fprintf(w, "    note: %s\n", n)
		}
	}
}

// formatImportsText formats CLIImport results as aligned columns.
func formatImportsText(w io.Writer, imports []CLIImport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tTARGET\tRESOLVED")
	for _, imp := range imports {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", imp.Kind, imp.Target, imp.Resolved)
	}
	tw.Flush()
}

func formatCompletionText(w io.Writer, c CLICompletion) {
	fmt.Fprintf(w, "kind: %s\n", c.Kind)
	writeItems := func(items []CLICompletionItem, indent string) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, it := range items {
			fmt.Fprintf(tw, "%s%s\t%s\n", indent, it.Label, it.Detail)
		}
		tw.Flush()
	}
	writeItems(c.Items, "")
	for _, g := range c.Groups {
		fmt.Fprintf(w, "%s:\n", g.Name)
		writeItems(g.Items, "  ")
	}
}

func formatIndexSummaryText(w io.Writer, s CLIIndexSummary) {
	if s.Root != "" {
		fmt.Fprintf(w, "Root: %s\n", s.Root)
	}
	fmt.Fprintf(w, "Units: %d\n", s.Units)
	for _, sev := range []string{"error", "warning", "hint"} {
		if n := s.Diagnostics[sev]; n > 0 {
			fmt.Fprintf(w, "%s: %d\n", severityLabel(sev), n)
		}
	}
	if s.Unresolved > 0 {
		fmt.Fprintf(w, "Unresolved requires: %d\n", s.Unresolved)
	}
	fmt.Fprintf(w, "Database: %s\n", s.Database)
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, flagFormat, result)
}

func writeResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return writeResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorColor.Sprint("Error:"), err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// writeResultText dispatches to the text formatter for the result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLIDeclaration:
		formatDeclarationsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIImport:
		formatImportsText(w, v)
	case []string:
		for _, p := range v {
			fmt.Fprintln(w, p)
		}
	case CLICompletion:
		formatCompletionText(w, v)
	case CLIIndexSummary:
		formatIndexSummaryText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		if shown := resultLen(result.Results); shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLIDeclaration:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []CLIImport:
		return len(r)
	case []string:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
