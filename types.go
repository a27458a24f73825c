package garnet

import (
	"github.com/jward/garnet/internal/completion"
	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/store"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// API. External consumers use these names; no conversion is needed.

type Store = store.Store
type Unit = graph.Unit
type Context = graph.Context
type Declaration = graph.Declaration
type Diagnostic = diag.Diagnostic
type Position = syntax.Position
type Range = syntax.Range
type Type = types.Type
type CompletionResult = completion.Result
type CompletionItem = completion.Item
