package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/garnet/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the semantic index",
	Long:  "Run queries against the database written by 'garnet index'. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(declarationsCmd)
	queryCmd.AddCommand(searchCmd)
	queryCmd.AddCommand(importsCmd)
	queryCmd.AddCommand(dependentsCmd)
}

// openStore opens the database named by --db or the config found from the
// working directory.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	cfg, err := loadConfig(cwd)
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'garnet index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// withStore runs fn against the opened store and reports failures in the
// selected format.
func withStore(command string, fn func(*store.Store) (CLIResult, error)) error {
	s, err := openStore()
	if err != nil {
		return outputError(command, err)
	}
	defer s.Close()
	result, err := fn(s)
	if err != nil {
		return outputError(command, err)
	}
	result.Command = command
	return outputResult(result)
}

func declarationLocation(d *store.Declaration) CLILocation {
	return CLILocation{
		File:      d.Path,
		Name:      d.Name,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	}
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the definition of the name at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("definition", func(s *store.Store) (CLIResult, error) {
			file, line, col, err := parsePositionArgs(args)
			if err != nil {
				return CLIResult{}, err
			}
			decls, err := s.DefinitionAt(file, line, col)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLILocation, 0, len(decls))
			for _, d := range decls {
				out = append(out, declarationLocation(d))
			}
			return CLIResult{Results: out}, nil
		})
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line> <col>",
	Short: "Find every use of the declaration at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("references", func(s *store.Store) (CLIResult, error) {
			file, line, col, err := parsePositionArgs(args)
			if err != nil {
				return CLIResult{}, err
			}
			decls, err := s.DefinitionAt(file, line, col)
			if err != nil {
				return CLIResult{}, err
			}
			out := []CLILocation{}
			for _, d := range decls {
				uses, err := s.ReferencesTo(store.Target{
					Unit: d.Path, Name: d.Name,
					StartLine: d.StartLine, StartCol: d.StartCol, EndLine: d.EndLine, EndCol: d.EndCol,
				})
				if err != nil {
					return CLIResult{}, err
				}
				for _, u := range uses {
					out = append(out, CLILocation{
						File: u.Path, Name: u.Name,
						StartLine: u.StartLine, StartCol: u.StartCol, EndLine: u.EndLine, EndCol: u.EndCol,
					})
				}
			}
			total := len(out)
			return CLIResult{Results: out, TotalCount: &total}, nil
		})
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics [file]",
	Short: "List diagnostics of a file, or of every file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("diagnostics", func(s *store.Store) (CLIResult, error) {
			var file string
			if len(args) > 0 {
				var err error
				if file, err = resolveFilePath(args[0]); err != nil {
					return CLIResult{}, err
				}
			}
			diags, err := s.Diagnostics(file)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIDiagnostic, 0, len(diags))
			for _, d := range diags {
				out = append(out, storeDiagnosticToCLI(d))
			}
			total := len(out)
			return CLIResult{Results: out, TotalCount: &total}, nil
		})
	},
}

var declarationsCmd = &cobra.Command{
	Use:   "declarations <file>",
	Short: "List the declarations of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("declarations", func(s *store.Store) (CLIResult, error) {
			file, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			u, err := s.UnitByPath(file)
			if err != nil {
				return CLIResult{}, err
			}
			if u == nil {
				return CLIResult{}, fmt.Errorf("%s is not indexed", file)
			}
			decls, err := s.Declarations(file)
			if err != nil {
				return CLIResult{}, err
			}
			return declarationsResult(decls), nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Find declarations by identifier or qualified name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("search", func(s *store.Store) (CLIResult, error) {
			decls, err := s.DeclarationsNamed(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			return declarationsResult(decls), nil
		})
	},
}

func declarationsResult(decls []*store.Declaration) CLIResult {
	out := make([]CLIDeclaration, 0, len(decls))
	for _, d := range decls {
		out = append(out, storeDeclarationToCLI(d))
	}
	total := len(out)
	return CLIResult{Results: out, TotalCount: &total}
}

var importsCmd = &cobra.Command{
	Use:   "imports <file>",
	Short: "List the requires and mixins of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("imports", func(s *store.Store) (CLIResult, error) {
			file, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			imports, err := s.Imports(file)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIImport, 0, len(imports))
			for _, imp := range imports {
				out = append(out, CLIImport{Kind: imp.Kind, Target: imp.Target, Resolved: imp.Resolved})
			}
			return CLIResult{Results: out}, nil
		})
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <file>",
	Short: "List the files that require a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore("dependents", func(s *store.Store) (CLIResult, error) {
			file, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			paths, err := s.Dependents(file)
			if err != nil {
				return CLIResult{}, err
			}
			if paths == nil {
				paths = []string{}
			}
			return CLIResult{Results: paths}, nil
		})
	},
}
