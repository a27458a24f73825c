package syntax

import "fmt"

// Position is a 0-based line/column location in a source unit.
type Position struct {
	Line   int
	Column int
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open source span [Start, End).
type Range struct {
	Start Position
	End   Position
}

// NewRange builds a range from raw coordinates.
func NewRange(startLine, startCol, endLine, endCol int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// Contains reports whether p lies within r. The end position is inclusive so
// that a cursor placed right after the last character still belongs to r.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// IsZero reports whether r is the zero range.
func (r Range) IsZero() bool {
	return r == Range{}
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}
