package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/garnet/internal/syntax"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a Ruby project",
	Long:  "Parses every Ruby file under path, analyzes it and writes the results to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("index", err)
	}
	if flagForce {
		cfg, err := loadConfig(targetDir)
		if err != nil {
			return outputError("index", err)
		}
		dbPath := resolveDBPath(cfg)
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				return outputError("index", fmt.Errorf("removing database for --force: %w", err))
			}
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	s, err := openSession(targetDir)
	if err != nil {
		return outputError("index", err)
	}
	defer s.Close()

	// Per-file failures are reported but do not abort the run.
	if err := s.engine.IndexDirectory(cmd.Context(), targetDir, s.cfg.Exclude); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningColor.Sprint("Warning:"), err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %s in %s\n", targetDir, elapsed(start))

	summary := summarize(s)
	summary.Root = targetDir
	return outputResult(CLIResult{Command: "index", Results: summary})
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one file and the files it requires",
	Long:  "Analyzes file together with its transitive requires and prints its diagnostics.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("analyze", err)
	}
	s, err := openSession(filepath.Dir(file))
	if err != nil {
		return outputError("analyze", err)
	}
	defer s.Close()

	if err := indexClosure(cmd.Context(), s.engine, []string{file}); err != nil {
		return outputError("analyze", err)
	}
	diags, err := s.engine.Query().Diagnostics(file)
	if err != nil {
		return outputError("analyze", err)
	}
	fmt.Fprintf(os.Stderr, "Analyzed %s in %s\n", file, elapsed(start))

	out := make([]CLIDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, diagnosticToCLI(d))
	}
	total := len(out)
	return outputResult(CLIResult{Command: "analyze", Results: out, TotalCount: &total})
}

var flagFull bool

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <col>",
	Short: "Complete at a 0-based position",
	Long:  "Analyzes file with its requires and prints the completions at the given 0-based line and column.",
	Args:  cobra.ExactArgs(3),
	RunE:  runComplete,
}

func init() {
	completeCmd.Flags().BoolVar(&flagFull, "full", false, "also list standard completions for member access")
}

func runComplete(cmd *cobra.Command, args []string) error {
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError("complete", err)
	}
	text, err := os.ReadFile(file)
	if err != nil {
		return outputError("complete", err)
	}
	s, err := openSession(filepath.Dir(file))
	if err != nil {
		return outputError("complete", err)
	}
	defer s.Close()

	if err := indexClosure(cmd.Context(), s.engine, []string{file}); err != nil {
		return outputError("complete", err)
	}
	res, err := s.engine.Complete(cmd.Context(), file, string(text), syntax.Position{Line: line, Column: col}, flagFull)
	if err != nil {
		return outputError("complete", err)
	}
	return outputResult(CLIResult{Command: "complete", Results: completionToCLI(res)})
}

// parsePositionArgs parses <file> <line> <col>.
func parsePositionArgs(args []string) (file string, line, col int, err error) {
	if file, err = resolveFilePath(args[0]); err != nil {
		return "", 0, 0, err
	}
	if line, err = parseIntArg(args[1], "line"); err != nil {
		return "", 0, 0, err
	}
	if col, err = parseIntArg(args[2], "col"); err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

func summarize(s *session) CLIIndexSummary {
	sum := s.engine.Query().ProjectSummary(0)
	return CLIIndexSummary{Units: sum.Units, Diagnostics: sum.Diagnostics, Unresolved: sum.Unresolved, Database: s.dbPath}
}
