// Package garnet provides static semantic analysis of Ruby source: scoped
// declarations, inferred types, resolved identifier uses, diagnostics and
// context-aware completion, built on tree-sitter.
//
// # Pipeline
//
// Each source unit goes through a fixed pipeline:
//
//  1. Parse: tree-sitter-ruby produces a concrete tree that is converted to
//     garnet's own syntax tree.
//  2. Contexts: one pass builds the lexical scope tree (classes, modules,
//     methods, blocks) and records requires, includes and extends.
//  3. Declarations: a second pass declares classes, methods, constants,
//     parameters and variables, inferring each declaration's type.
//  4. Returns: method return types are finalized from their last
//     expressions and explicit returns.
//  5. Uses: a final pass resolves every identifier occurrence and reports
//     undefined names.
//
// Types that cannot be determined exactly are unions ("Unsure" types)
// rather than a single guess.
//
// # Usage
//
//	e, err := garnet.New(garnet.WithResolver(loader.NewSearchPaths(log, "lib")))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project", nil)
//
//	q := e.Query()
//	locs, err := q.DefinitionAt("/abs/path/app.rb", 10, 5)
//
// # Incremental analysis
//
// [Engine.AnalyzeSource] and [Engine.IndexFiles] skip content whose hash is
// unchanged. A unit whose require could not be resolved is re-analyzed once
// the required unit is published, and units requiring a re-analyzed unit
// are re-analyzed in turn. [Engine.Invalidate] forces the next analysis.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] works on the published units
// in memory:
//
//   - [QueryBuilder.DefinitionAt] and [QueryBuilder.ReferencesTo] for
//     navigation.
//   - [QueryBuilder.TypeAt], [QueryBuilder.HoverAt] and
//     [QueryBuilder.DetailAt] for inferred types and documentation.
//   - [QueryBuilder.Declarations] and [QueryBuilder.SearchDeclarations] for
//     discovery.
//   - [QueryBuilder.TypeHierarchy], [QueryBuilder.TransitiveRequires] and
//     [QueryBuilder.CircularRequires] for structure.
//
// With [WithStore], every published unit is also written to SQLite so that
// other processes can query the index.
package garnet
