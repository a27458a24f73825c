package store

import (
	"database/sql"
	"fmt"
)

// containsClause matches rows whose start/end columns enclose (line, col),
// end inclusive. Bind its arguments with positionArgs.
const containsClause = `start_line <= ? AND end_line >= ?
	AND (start_line < ? OR (start_line = ? AND start_col <= ?))
	AND (end_line > ? OR (end_line = ? AND end_col >= ?))`

func positionArgs(line, col int) []any {
	return []any{line, line, line, line, col, line, line, col}
}

const declarationColumns = `d.id, d.unit_id, u.path, d.context_id, d.name, d.identifier, d.kind, d.visibility,
	d.singleton, d.param, d.comment, d.type_blob, d.type_text, d.start_line, d.start_col, d.end_line, d.end_col`

func scanDeclarations(rows *sql.Rows) ([]*Declaration, error) {
	defer rows.Close()
	var out []*Declaration
	for rows.Next() {
		d := &Declaration{}
		var (
			ctxID   sql.NullInt64
			comment sql.NullString
			vis     sql.NullString
			text    sql.NullString
			blob    []byte
		)
		if err := rows.Scan(&d.ID, &d.UnitID, &d.Path, &ctxID, &d.Name, &d.Identifier, &d.Kind, &vis,
			&d.Singleton, &d.Param, &comment, &blob, &text, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		if ctxID.Valid {
			d.ContextID = &ctxID.Int64
		}
		d.Visibility, d.Comment, d.TypeText = vis.String, comment.String, text.String
		t, err := DecodeType(blob)
		if err != nil {
			return nil, fmt.Errorf("declaration %q: %w", d.Name, err)
		}
		d.Type = t
		out = append(out, d)
	}
	return out, rows.Err()
}

const useColumns = `s.id, s.unit_id, u.path, s.name, s.start_line, s.start_col, s.end_line, s.end_col,
	s.target_unit, s.target_name, s.target_start_line, s.target_start_col, s.target_end_line, s.target_end_col`

func scanUses(rows *sql.Rows) ([]*Use, error) {
	defer rows.Close()
	var out []*Use
	for rows.Next() {
		use := &Use{}
		var (
			unit, name     sql.NullString
			sl, sc, el, ec sql.NullInt64
		)
		if err := rows.Scan(&use.ID, &use.UnitID, &use.Path, &use.Name, &use.StartLine, &use.StartCol, &use.EndLine, &use.EndCol,
			&unit, &name, &sl, &sc, &el, &ec); err != nil {
			return nil, fmt.Errorf("scan use: %w", err)
		}
		if unit.Valid {
			use.Target = &Target{
				Unit: unit.String, Name: name.String,
				StartLine: int(sl.Int64), StartCol: int(sc.Int64),
				EndLine: int(el.Int64), EndCol: int(ec.Int64),
			}
		}
		out = append(out, use)
	}
	return out, rows.Err()
}
