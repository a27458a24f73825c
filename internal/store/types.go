package store

import (
	"time"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// Row types. Positions are 0-based like syntax.Position.

type Unit struct {
	ID          int64
	Path        string
	Hash        uint64
	Revision    int
	LastIndexed time.Time
}

type Context struct {
	ID         int64
	UnitID     int64
	ParentID   *int64
	Kind       string
	Name       string
	Superclass string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}

type Declaration struct {
	ID         int64
	UnitID     int64
	Path       string
	ContextID  *int64
	Name       string
	Identifier string
	Kind       string
	Visibility string
	Singleton  bool
	Param      bool
	Comment    string
	Type       types.Type
	TypeText   string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}

// Range returns the declared range.
func (d *Declaration) Range() syntax.Range {
	return syntax.NewRange(d.StartLine, d.StartCol, d.EndLine, d.EndCol)
}

// Target identifies a declaration by unit, qualified name and range. It
// mirrors graph.DeclRef and stays valid for declarations of units that are
// not in the store, such as builtins.
type Target struct {
	Unit      string
	Name      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

type Use struct {
	ID        int64
	UnitID    int64
	Path      string
	Name      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Target    *Target
}

type Diagnostic struct {
	ID        int64
	UnitID    int64
	Path      string
	Severity  string
	Category  string
	Message   string
	Notes     []diag.Note
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Import is a require, include or extend edge. Resolved is false for
// require targets that were unavailable when the unit was analyzed.
type Import struct {
	ID       int64
	UnitID   int64
	Kind     string
	Target   string
	Resolved bool
}
