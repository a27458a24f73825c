package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
)

// SaveUnit replaces everything recorded for u.ID within a single
// transaction.
//
// Insert order respects FK dependencies:
//  1. Unit row
//  2. Contexts (creation order puts parents first)
//  3. Declarations (depend on contexts)
//  4. Uses, diagnostics and imports (depend on the unit only)
func (s *Store) SaveUnit(u *graph.Unit) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save unit %s: begin: %w", u.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM units WHERE path = ?", u.ID); err != nil {
		return fmt.Errorf("save unit %s: clear: %w", u.ID, err)
	}
	res, err := tx.Exec(
		"INSERT INTO units (path, hash, revision, last_indexed) VALUES (?, ?, ?, ?)",
		u.ID, int64(u.Hash), u.Revision, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save unit %s: insert: %w", u.ID, err)
	}
	unitID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save unit %s: last insert id: %w", u.ID, err)
	}

	ctxIDs := make(map[*graph.Context]int64, len(u.Contexts()))
	for _, c := range u.Contexts() {
		var parent *int64
		if c.Parent != nil {
			if id, ok := ctxIDs[c.Parent]; ok {
				parent = &id
			}
		}
		r := c.Range()
		res, err := tx.Exec(
			`INSERT INTO contexts (unit_id, parent_id, kind, name, superclass, start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			unitID, parent, c.Kind.String(), c.Name.String(), c.Superclass.String(),
			r.Start.Line, r.Start.Column, r.End.Line, r.End.Column,
		)
		if err != nil {
			return fmt.Errorf("save unit %s: context %q: %w", u.ID, c.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("save unit %s: context id: %w", u.ID, err)
		}
		ctxIDs[c] = id
	}

	for _, c := range u.Contexts() {
		ctxID := ctxIDs[c]
		for _, d := range c.Declarations() {
			if err := insertDeclarationTx(tx, unitID, ctxID, d); err != nil {
				return fmt.Errorf("save unit %s: declaration %q: %w", u.ID, d.Name, err)
			}
		}
	}

	for _, use := range u.Uses {
		if err := insertUseTx(tx, unitID, use); err != nil {
			return fmt.Errorf("save unit %s: use %q: %w", u.ID, use.Name, err)
		}
	}

	for _, d := range u.Diagnostics {
		notes, err := encodeNotes(d.Notes)
		if err != nil {
			return fmt.Errorf("save unit %s: %w", u.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO diagnostics (unit_id, severity, category, message, notes, start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			unitID, d.Severity.String(), d.Category.String(), d.Message, notes,
			d.Range.Start.Line, d.Range.Start.Column, d.Range.End.Line, d.Range.End.Column,
		); err != nil {
			return fmt.Errorf("save unit %s: diagnostic: %w", u.ID, err)
		}
	}

	for _, imp := range unitImports(u) {
		if _, err := tx.Exec(
			"INSERT INTO imports (unit_id, kind, target, resolved) VALUES (?, ?, ?, ?)",
			unitID, imp.Kind, imp.Target, imp.Resolved,
		); err != nil {
			return fmt.Errorf("save unit %s: import %q: %w", u.ID, imp.Target, err)
		}
	}

	return tx.Commit()
}

func insertDeclarationTx(tx *sql.Tx, unitID, ctxID int64, d *graph.Declaration) error {
	blob, err := EncodeType(d.RawType())
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO declarations (unit_id, context_id, name, identifier, kind, visibility, singleton, param, comment,
		   type_blob, type_text, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unitID, ctxID, d.Name.String(), d.Identifier(), d.Kind.String(), d.Visibility.String(),
		d.Singleton, d.Param, d.Comment, blob, d.Type().String(),
		d.Range.Start.Line, d.Range.Start.Column, d.Range.End.Line, d.Range.End.Column,
	)
	return err
}

func insertUseTx(tx *sql.Tx, unitID int64, use graph.Use) error {
	var (
		targetUnit, targetName *string
		target                 syntax.Range
		targetRange            [4]*int
	)
	if use.Target != nil {
		targetUnit, targetName = &use.Target.Unit, &use.Target.Name
		target = use.Target.Range
		targetRange = [4]*int{&target.Start.Line, &target.Start.Column, &target.End.Line, &target.End.Column}
	}
	_, err := tx.Exec(
		`INSERT INTO uses (unit_id, name, start_line, start_col, end_line, end_col,
		   target_unit, target_name, target_start_line, target_start_col, target_end_line, target_end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unitID, use.Name, use.Range.Start.Line, use.Range.Start.Column, use.Range.End.Line, use.Range.End.Column,
		targetUnit, targetName, targetRange[0], targetRange[1], targetRange[2], targetRange[3],
	)
	return err
}

// unitImports flattens the require edges of u and the mixins of its
// contexts.
func unitImports(u *graph.Unit) []Import {
	var out []Import
	for _, id := range u.Imports {
		out = append(out, Import{Kind: graph.RequireImport.String(), Target: id, Resolved: true})
	}
	for _, id := range u.Unresolved {
		out = append(out, Import{Kind: graph.RequireImport.String(), Target: id})
	}
	for _, c := range u.Contexts() {
		for _, imp := range c.Imports() {
			if imp.Kind == graph.RequireImport {
				continue
			}
			out = append(out, Import{Kind: imp.Kind.String(), Target: imp.Module.String(), Resolved: true})
		}
	}
	return out
}
