package garnet

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/garnet/internal/graph"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName     SortField = "name"
	SortByKind     SortField = "kind"
	SortByFile     SortField = "file"
	SortByRefCount SortField = "ref_count"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// DeclarationResult is a declaration with its location and reference counts.
type DeclarationResult struct {
	Decl             *graph.Declaration
	Name             string // qualified name
	Kind             string
	Type             string
	Location         Location
	RefCount         int // uses resolved to the declaration
	ExternalRefCount int // uses from other units
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// DeclarationFilter specifies which declarations to include. All fields are
// optional.
type DeclarationFilter struct {
	Kinds      []string // match any of these kinds
	Visibility *string  // exact match
	File       string   // restrict to a single unit
	PathPrefix string   // restrict to units under this directory
	Singleton  *bool
}

func (f DeclarationFilter) accepts(u *graph.Unit, d *graph.Declaration) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, d.Kind.String()) {
		return false
	}
	if f.Visibility != nil && d.Visibility.String() != *f.Visibility {
		return false
	}
	if f.File != "" && u.ID != f.File {
		return false
	}
	if prefix := normalizePathPrefix(f.PathPrefix); prefix != "" && !strings.HasPrefix(u.ID, prefix) {
		return false
	}
	if f.Singleton != nil && d.Singleton != *f.Singleton {
		return false
	}
	return true
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" so that
// "lib/store" does not match "lib/store_utils/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

type refCounts struct {
	total, external map[graph.DeclRef]int
}

// countRefs tallies resolved uses across units.
func countRefs(units []*graph.Unit) refCounts {
	rc := refCounts{total: make(map[graph.DeclRef]int), external: make(map[graph.DeclRef]int)}
	for _, u := range units {
		for _, use := range u.Uses {
			if use.Target == nil {
				continue
			}
			rc.total[*use.Target]++
			if use.Target.Unit != u.ID {
				rc.external[*use.Target]++
			}
		}
	}
	return rc
}

func (rc refCounts) result(unit string, d *graph.Declaration) DeclarationResult {
	ref := d.Ref()
	return DeclarationResult{
		Decl:             d,
		Name:             d.Name.String(),
		Kind:             d.Kind.String(),
		Type:             d.Type().String(),
		Location:         locationOf(unit, d.Range),
		RefCount:         rc.total[ref],
		ExternalRefCount: rc.external[ref],
	}
}

func sortResults(items []DeclarationResult, s Sort) {
	less := func(a, b DeclarationResult) int {
		switch s.Field {
		case SortByKind:
			if c := strings.Compare(a.Kind, b.Kind); c != 0 {
				return c
			}
		case SortByFile:
			if c := strings.Compare(a.Location.File, b.Location.File); c != 0 {
				return c
			}
		case SortByRefCount:
			if a.RefCount != b.RefCount {
				return a.RefCount - b.RefCount
			}
		}
		return strings.Compare(a.Name, b.Name)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if s.Order == Desc {
			return less(items[j], items[i]) < 0
		}
		return less(items[i], items[j]) < 0
	})
}

func paginate[T any](items []T, page Pagination) *PagedResult[T] {
	page = page.normalize()
	total := len(items)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return &PagedResult[T]{Items: out, TotalCount: total}
}

// --- Enumeration Endpoints ---

// Declarations is the primary listing/filtering endpoint over every
// published unit. Builtins are not listed.
func (q *QueryBuilder) Declarations(filter DeclarationFilter, s Sort, page Pagination) *PagedResult[DeclarationResult] {
	units := q.engine.Units()
	rc := countRefs(units)
	items := []DeclarationResult{}
	for _, u := range units {
		for _, d := range u.Declarations() {
			if filter.accepts(u, d) {
				items = append(items, rc.result(u.ID, d))
			}
		}
	}
	sortResults(items, s)
	return paginate(items, page)
}

// SearchDeclarations performs glob-style search on declaration names. A
// pattern containing "::" matches qualified names, otherwise identifiers.
func (q *QueryBuilder) SearchDeclarations(pattern string, filter DeclarationFilter, s Sort, page Pagination) (*PagedResult[DeclarationResult], error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("search declarations: invalid pattern %q", pattern)
	}
	qualified := strings.Contains(pattern, "::")
	units := q.engine.Units()
	rc := countRefs(units)
	items := []DeclarationResult{}
	for _, u := range units {
		for _, d := range u.Declarations() {
			name := d.Identifier()
			if qualified {
				name = d.Name.String()
			}
			if ok, _ := doublestar.Match(pattern, name); ok && filter.accepts(u, d) {
				items = append(items, rc.result(u.ID, d))
			}
		}
	}
	sortResults(items, s)
	return paginate(items, page), nil
}

// Units lists the published unit ids under pathPrefix.
func (q *QueryBuilder) Units(pathPrefix string, page Pagination) *PagedResult[string] {
	prefix := normalizePathPrefix(pathPrefix)
	ids := []string{}
	for _, u := range q.engine.Units() {
		if strings.HasPrefix(u.ID, prefix) {
			ids = append(ids, u.ID)
		}
	}
	return paginate(ids, page)
}

// --- Summary ---

// ProjectSummary provides a high-level overview of the analyzed project.
type ProjectSummary struct {
	Units       int
	Kinds       map[string]int // declarations per kind
	Diagnostics map[string]int // diagnostics per severity
	Unresolved  int            // require targets not found
	TopClasses  []DeclarationResult
}

// ProjectSummary returns counts across the project and the topN most
// referenced classes and modules.
func (q *QueryBuilder) ProjectSummary(topN int) *ProjectSummary {
	units := q.engine.Units()
	rc := countRefs(units)
	sum := &ProjectSummary{
		Units:       len(units),
		Kinds:       make(map[string]int),
		Diagnostics: make(map[string]int),
	}
	var classes []DeclarationResult
	for _, u := range units {
		sum.Unresolved += len(u.Unresolved)
		for _, d := range u.Diagnostics {
			sum.Diagnostics[d.Severity.String()]++
		}
		for _, d := range u.Declarations() {
			sum.Kinds[d.Kind.String()]++
			if d.IsType() {
				classes = append(classes, rc.result(u.ID, d))
			}
		}
	}
	sortResults(classes, Sort{Field: SortByRefCount, Order: Desc})
	sum.TopClasses = classes[:min(max(topN, 0), len(classes))]
	return sum
}
