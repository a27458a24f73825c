package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jward/garnet/internal/graph"
)

// UnitByPath returns the unit row for path, or nil.
func (s *Store) UnitByPath(path string) (*Unit, error) {
	u := &Unit{}
	var hash int64
	var indexed sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, path, hash, revision, last_indexed FROM units WHERE path = ?", path,
	).Scan(&u.ID, &u.Path, &hash, &u.Revision, &indexed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit by path: %w", err)
	}
	u.Hash = uint64(hash)
	u.LastIndexed = indexed.Time
	return u, nil
}

// Units returns every stored unit ordered by path.
func (s *Store) Units() ([]*Unit, error) {
	rows, err := s.db.Query("SELECT id, path, hash, revision, last_indexed FROM units ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()
	var out []*Unit
	for rows.Next() {
		u := &Unit{}
		var hash int64
		var indexed sql.NullTime
		if err := rows.Scan(&u.ID, &u.Path, &hash, &u.Revision, &indexed); err != nil {
			return nil, fmt.Errorf("units: scan: %w", err)
		}
		u.Hash = uint64(hash)
		u.LastIndexed = indexed.Time
		out = append(out, u)
	}
	return out, rows.Err()
}

// UnitHash returns the content hash stored for path. ok is false when the
// unit is unknown.
func (s *Store) UnitHash(path string) (hash uint64, ok bool, err error) {
	u, err := s.UnitByPath(path)
	if err != nil || u == nil {
		return 0, false, err
	}
	return u.Hash, true, nil
}

// Declarations returns the declarations of the unit at path in insertion
// order.
func (s *Store) Declarations(path string) ([]*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT "+declarationColumns+` FROM declarations d JOIN units u ON u.id = d.unit_id
		 WHERE u.path = ? ORDER BY d.id`, path)
	if err != nil {
		return nil, fmt.Errorf("declarations: %w", err)
	}
	return scanDeclarations(rows)
}

// DeclarationsNamed returns declarations across all units whose identifier
// or qualified name equals name.
func (s *Store) DeclarationsNamed(name string) ([]*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT "+declarationColumns+` FROM declarations d JOIN units u ON u.id = d.unit_id
		 WHERE d.identifier = ? OR d.name = ? ORDER BY u.path, d.id`, name, name)
	if err != nil {
		return nil, fmt.Errorf("declarations named %q: %w", name, err)
	}
	return scanDeclarations(rows)
}

// declarationFor returns the stored declaration t identifies, or nil.
func (s *Store) declarationFor(t *Target) (*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT "+declarationColumns+` FROM declarations d JOIN units u ON u.id = d.unit_id
		 WHERE u.path = ? AND d.name = ? AND d.start_line = ? AND d.start_col = ? AND d.end_line = ? AND d.end_col = ?
		 LIMIT 1`,
		t.Unit, t.Name, t.StartLine, t.StartCol, t.EndLine, t.EndCol)
	if err != nil {
		return nil, err
	}
	decls, err := scanDeclarations(rows)
	if err != nil || len(decls) == 0 {
		return nil, err
	}
	return decls[0], nil
}

// DefinitionAt returns the declarations the identifier at (line, col) of
// path refers to. A position on a declaration's own name yields that
// declaration. Targets in units that are not stored, such as builtins, are
// returned with ID zero and only their location filled in.
func (s *Store) DefinitionAt(path string, line, col int) ([]*Declaration, error) {
	args := append([]any{path}, positionArgs(line, col)...)
	rows, err := s.db.Query(
		"SELECT "+useColumns+` FROM uses s JOIN units u ON u.id = s.unit_id
		 WHERE u.path = ? AND s.target_unit IS NOT NULL AND `+containsClause, args...)
	if err != nil {
		return nil, fmt.Errorf("definition at: query uses: %w", err)
	}
	uses, err := scanUses(rows)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}

	var out []*Declaration
	for _, use := range uses {
		d, err := s.declarationFor(use.Target)
		if err != nil {
			return nil, fmt.Errorf("definition at: resolve %q: %w", use.Name, err)
		}
		if d == nil {
			t := use.Target
			d = &Declaration{
				Path: t.Unit, Name: t.Name, Identifier: graph.ParseName(t.Name).Last(),
				StartLine: t.StartLine, StartCol: t.StartCol, EndLine: t.EndLine, EndCol: t.EndCol,
			}
		}
		out = append(out, d)
	}
	if len(out) > 0 {
		return out, nil
	}

	rows, err = s.db.Query(
		"SELECT "+declarationColumns+` FROM declarations d JOIN units u ON u.id = d.unit_id
		 WHERE u.path = ? AND `+containsClause+" ORDER BY d.id LIMIT 1", args...)
	if err != nil {
		return nil, fmt.Errorf("definition at: query declarations: %w", err)
	}
	return scanDeclarations(rows)
}

// ReferencesTo returns every stored use resolved to t, across all units.
func (s *Store) ReferencesTo(t Target) ([]*Use, error) {
	rows, err := s.db.Query(
		"SELECT "+useColumns+` FROM uses s JOIN units u ON u.id = s.unit_id
		 WHERE s.target_unit = ? AND s.target_name = ?
		   AND s.target_start_line = ? AND s.target_start_col = ? AND s.target_end_line = ? AND s.target_end_col = ?
		 ORDER BY u.path, s.id`,
		t.Unit, t.Name, t.StartLine, t.StartCol, t.EndLine, t.EndCol)
	if err != nil {
		return nil, fmt.Errorf("references to %q: %w", t.Name, err)
	}
	return scanUses(rows)
}

// Diagnostics returns the diagnostics of the unit at path, or of every unit
// when path is empty.
func (s *Store) Diagnostics(path string) ([]*Diagnostic, error) {
	q := `SELECT d.id, d.unit_id, u.path, d.severity, d.category, d.message, d.notes,
		d.start_line, d.start_col, d.end_line, d.end_col
		FROM diagnostics d JOIN units u ON u.id = d.unit_id`
	var args []any
	if path != "" {
		q += " WHERE u.path = ?"
		args = append(args, path)
	}
	rows, err := s.db.Query(q+" ORDER BY u.path, d.id", args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()

	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		var notes []byte
		if err := rows.Scan(&d.ID, &d.UnitID, &d.Path, &d.Severity, &d.Category, &d.Message, &notes,
			&d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol); err != nil {
			return nil, fmt.Errorf("diagnostics: scan: %w", err)
		}
		if d.Notes, err = decodeNotes(notes); err != nil {
			return nil, fmt.Errorf("diagnostics: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Imports returns the import edges of the unit at path.
func (s *Store) Imports(path string) ([]*Import, error) {
	rows, err := s.db.Query(
		`SELECT i.id, i.unit_id, i.kind, i.target, i.resolved
		 FROM imports i JOIN units u ON u.id = i.unit_id
		 WHERE u.path = ? ORDER BY i.id`, path)
	if err != nil {
		return nil, fmt.Errorf("imports: %w", err)
	}
	defer rows.Close()
	var out []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.UnitID, &imp.Kind, &imp.Target, &imp.Resolved); err != nil {
			return nil, fmt.Errorf("imports: scan: %w", err)
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// Dependents returns the paths of units that require target.
func (s *Store) Dependents(target string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT u.path FROM imports i JOIN units u ON u.id = i.unit_id
		 WHERE i.kind = 'require' AND i.target = ? ORDER BY u.path`, target)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("dependents: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
