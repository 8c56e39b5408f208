package assoc

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
)

// filterConstant matches `col` = 'v' and col = 123 pairs in a descriptor
// filter.
var filterConstant = regexp.MustCompile("(?:`(\\w+)`|\\b(\\w+))\\s*=\\s*(?:'((?:[^'\\\\]|\\\\.)*)'|(-?[\\d.]+))")

// InsertMore writes the HAS_ONE, HAS_MANY and HAS_MORE sub-payloads of values,
// a row of table that was just written. Descriptors whose name is absent from
// values are left alone.
//
// With a unique key, configured on the descriptor or as the target table's
// own, the sub-rows are reconciled through UpdateMore. Without one, every
// existing row under the parent is deleted and the sub-rows inserted fresh.
func (r *Resolver) InsertMore(ctx context.Context, table *ir.Table, values ir.Row) error {
	for _, a := range table.Assocs {
		if a.Type == ir.BelongsTo {
			continue
		}
		raw, ok := values[a.Name]
		if !ok {
			continue
		}
		if err := checkAssoc(a); err != nil {
			return err
		}
		target, err := r.catalog.Table(a.Target())
		if err != nil {
			return configError(ErrNoTable, a.Name, err)
		}

		rows, err := subRows(a, raw)
		if err != nil {
			return err
		}
		id := values[orDefault(a.PrimaryKey, table.PrimaryKey)]

		consts := filterConstants(a.Filter)
		for _, row := range rows {
			for k, v := range consts {
				row[k] = v
			}
			for _, k := range a.Convey {
				row[k] = values[k]
			}
			row[a.ForeignKey] = id
		}

		unique := a.Unique
		if len(unique) == 0 {
			unique = target.Unique()
		}
		if len(unique) > 0 {
			where := quote(a.ForeignKey) + " = ?"
			if a.Filter != "" {
				where += " AND " + querycase.StripSigils(a.Filter)
			}
			if err := r.UpdateMore(ctx, target, rows, unique, where, id); err != nil {
				return err
			}
			continue
		}

		if _, err := r.link.Delete(ctx, target.Name, quote(a.ForeignKey)+" = ?", id); err != nil {
			return err
		}
		for _, row := range rows {
			if target.PrimaryKey != "" && isBlank(row[target.PrimaryKey]) {
				row[target.PrimaryKey] = r.ids.Generate()
			}
			if _, err := r.link.Insert(ctx, target.Name, row); err != nil {
				return err
			}
		}
		r.logger.Debug("association replaced",
			zap.String("assoc", a.Name),
			zap.String("table", target.Name),
			zap.Int("rows", len(rows)),
		)
	}
	return nil
}

// UpdateMore reconciles rows against the rows of table matching where, so
// that afterwards exactly the given rows exist under that filter. Each row is
// matched on the unique columns: a match is updated in place, anything else
// is inserted with a fresh key, and rows under the filter that were not
// matched are deleted.
//
// Primary keys and default states are written back into rows.
func (r *Resolver) UpdateMore(ctx context.Context, table *ir.Table, rows []ir.Row, unique []string, where string, params ...any) error {
	pk := table.PrimaryKey
	match := where
	for _, k := range unique {
		match += " AND " + quote(k) + " = ?"
	}
	lookup := "SELECT " + quote(pk) + " FROM " + quote(table.Name) + " WHERE " + match

	var state any
	if table.StateField != "" {
		if v, ok := table.State("default"); ok {
			state = v
		}
	}

	ids := make([]any, 0, len(rows))
	var updated, inserted int
	for _, row := range rows {
		if state != nil {
			if _, ok := row[table.StateField]; !ok {
				row[table.StateField] = state
			}
		}

		ps := append([]any{}, params...)
		for _, k := range unique {
			ps = append(ps, row[k])
		}

		found, err := r.link.FetchOne(ctx, lookup, ps...)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			// a matched row keeps its key even if the payload names another
			row[pk] = found[pk]
			if _, err := r.link.Update(ctx, table.Name, row, match, ps...); err != nil {
				return err
			}
			updated++
		} else {
			if isBlank(row[pk]) {
				row[pk] = r.ids.Generate()
			}
			if _, err := r.link.Insert(ctx, table.Name, row); err != nil {
				return err
			}
			inserted++
		}
		ids = append(ids, row[pk])
	}

	var deleted int64
	var err error
	if len(ids) == 0 {
		deleted, err = r.link.Delete(ctx, table.Name, where, params...)
	} else {
		ps := append(append([]any{}, params...), ids)
		deleted, err = r.link.Delete(ctx, table.Name, where+" AND "+quote(pk)+" NOT IN (?)", ps...)
	}
	if err != nil {
		return err
	}

	r.logger.Debug("association reconciled",
		zap.String("table", table.Name),
		zap.Int("updated", updated),
		zap.Int("inserted", inserted),
		zap.Int64("deleted", deleted),
	)
	return nil
}

// DeleteMore deletes the HAS_* association rows of the table rows with the
// given primary keys, depth first: each level's keys are collected before its
// rows are deleted.
func (r *Resolver) DeleteMore(ctx context.Context, table *ir.Table, ids ...any) error {
	return r.deleteMore(ctx, table.Assocs, ids)
}

func (r *Resolver) deleteMore(ctx context.Context, assocs []ir.Assoc, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	for _, a := range assocs {
		if a.Type == ir.BelongsTo {
			continue
		}
		if err := checkAssoc(a); err != nil {
			return err
		}
		target, err := r.catalog.Table(a.Target())
		if err != nil {
			return configError(ErrNoTable, a.Name, err)
		}

		where := quote(a.ForeignKey) + " IN (?)"
		var childIDs []any
		if target.PrimaryKey != "" {
			sql := "SELECT " + quote(target.PrimaryKey) + " FROM " + quote(target.Name) + " WHERE " + where
			rows, err := r.link.Fetch(ctx, sql, 0, 0, ids)
			if err != nil {
				return err
			}
			for _, row := range rows {
				childIDs = append(childIDs, row[target.PrimaryKey])
			}
		}

		n, err := r.link.Delete(ctx, target.Name, where, ids)
		if err != nil {
			return err
		}
		r.logger.Debug("association deleted",
			zap.String("assoc", a.Name),
			zap.String("table", target.Name),
			zap.Int64("rows", n),
		)

		nested := a.Assocs
		if len(nested) == 0 {
			nested = target.Assocs
		}
		if err := r.deleteMore(ctx, nested, childIDs); err != nil {
			return err
		}
	}
	return nil
}

// subRows copies a sub-payload into rows. HAS_ONE takes one object; the to-many
// types take a list of objects or an object of objects, read in key order.
func subRows(a ir.Assoc, raw any) ([]ir.Row, error) {
	if a.Type == ir.HasOne {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, configError(ErrBadPayload, a.Name, fmt.Errorf("HAS_ONE payload must be an object, got %T", raw))
		}
		return []ir.Row{copyRow(m)}, nil
	}

	var rows []ir.Row
	switch v := raw.(type) {
	case []map[string]any:
		for _, m := range v {
			rows = append(rows, copyRow(m))
		}
	case []any:
		for i, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, configError(ErrBadPayload, a.Name, fmt.Errorf("item %d must be an object, got %T", i, e))
			}
			rows = append(rows, copyRow(m))
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m, ok := v[k].(map[string]any)
			if !ok {
				return nil, configError(ErrBadPayload, a.Name, fmt.Errorf("item %q must be an object, got %T", k, v[k]))
			}
			rows = append(rows, copyRow(m))
		}
	default:
		return nil, configError(ErrBadPayload, a.Name, fmt.Errorf("%s payload must be a list or an object, got %T", a.Type, raw))
	}
	return rows, nil
}

// filterConstants extracts the fixed column values a descriptor filter pins.
func filterConstants(filter string) map[string]any {
	if filter == "" {
		return nil
	}
	out := make(map[string]any)
	for _, m := range filterConstant.FindAllStringSubmatch(filter, -1) {
		col := m[1]
		if col == "" {
			col = m[2]
		}
		val := m[4]
		if m[4] == "" {
			val = strings.ReplaceAll(m[3], `\'`, `'`)
		}
		out[col] = val
	}
	return out
}

func copyRow(m map[string]any) ir.Row {
	out := make(ir.Row, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
