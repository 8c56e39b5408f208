package allowlist

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
	"github.com/roach88/qcase/internal/queryir"
)

// Trans clones the template and applies req to the clone.
func (a *Allowlist) Trans(req map[string]any) (*querycase.Case, error) {
	c := a.template.Clone()
	if err := a.apply(c, req); err != nil {
		return nil, err
	}
	return c, nil
}

// TransInPlace applies req to the template itself.
func (a *Allowlist) TransInPlace(req map[string]any) (*querycase.Case, error) {
	if err := a.apply(a.template, req); err != nil {
		return nil, err
	}
	return a.template, nil
}

// Apply applies req to c using this allow-list.
func (a *Allowlist) Apply(c *querycase.Case, req map[string]any) error {
	return a.apply(c, req)
}

// lists snapshots every purpose so one translation sees a consistent
// configuration.
type lists map[Purpose]*Fields

func (a *Allowlist) snapshot() lists {
	a.mu.Lock()
	defer a.mu.Unlock()
	ls := make(lists, len(Purposes))
	for _, p := range Purposes {
		ls[p] = a.fields(p)
	}
	return ls
}

func (a *Allowlist) apply(c *querycase.Case, req map[string]any) error {
	if len(req) == 0 {
		return nil
	}
	ls := a.snapshot()
	r := queryir.ParseRequest(req)

	a.replyWith(c, ls[Listable], r.ReplyWith)
	a.orderBy(c, ls[Sortable], r.OrderBy)
	if err := a.word(c, ls[Findable], r.Words); err != nil {
		return err
	}

	var w where
	if err := a.where(&w, ls[Filtable], r); err != nil {
		return err
	}
	for i, cond := range w.conds {
		c.Filter(cond, w.params[i]...)
	}
	return nil
}

// replyWith selects the requested fields. A term naming a group ("*" or
// "parent.*") stands for every field in it; a leading "-" excludes. Nothing
// included means everything. Excluding a single field first includes its
// whole group, so "-age" alone selects every other top-level field.
func (a *Allowlist) replyWith(c *querycase.Case, fs *Fields, terms []string) {
	if len(terms) == 0 {
		return
	}

	groups := make(map[string][]string)
	for _, name := range fs.Names() {
		g := groupOf(name)
		groups[g] = append(groups[g], name)
	}

	include := make(map[string]bool)
	exclude := make(map[string]bool)
	for _, term := range terms {
		target := include
		excl := strings.HasPrefix(term, "-")
		if excl {
			term = term[1:]
			target = exclude
		}
		if g, ok := groups[term]; ok {
			for _, n := range g {
				target[n] = true
			}
			continue
		}
		if !fs.Has(term) {
			continue
		}
		target[term] = true
		if excl {
			for _, n := range groups[groupOf(term)] {
				include[n] = true
			}
		}
	}

	all := len(include) == 0
	for _, f := range fs.List() {
		if (all || include[f.Name]) && !exclude[f.Name] {
			c.Select(f.Expr + " AS `" + f.Name + "`")
		}
	}
}

func groupOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i] + ".*"
	}
	return "*"
}

// orderBy appends sortable fields; "-" sorts descending.
func (a *Allowlist) orderBy(c *querycase.Case, fs *Fields, terms []string) {
	for _, term := range terms {
		desc := strings.HasPrefix(term, "-")
		if desc {
			term = term[1:]
		}
		expr, ok := fs.Get(term)
		if !ok {
			continue
		}
		if desc && !strings.HasSuffix(strings.ToUpper(expr), " DESC") {
			expr += " DESC"
		}
		c.OrderBy(expr)
	}
}

// word matches every term against every findable field: terms AND'd per
// field, fields OR'd.
func (a *Allowlist) word(c *querycase.Case, fs *Fields, words []string) error {
	if len(words) == 0 || fs.Len() == 0 {
		return nil
	}
	search := queryir.Search{Terms: words}
	var parts []string
	var params []any
	for _, f := range fs.List() {
		sql, ps, err := a.compiler.Compile(f.Expr, search)
		if err != nil {
			return fmt.Errorf("search %s: %w", f.Name, err)
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		c.Filter(parts[0], params...)
		return nil
	}
	c.Filter("("+strings.Join(parts, " OR ")+")", params...)
	return nil
}

// where accumulates conditions outside a case, so groups can be rendered
// as one parenthesised clause.
type where struct {
	conds  []string
	params [][]any
}

func (w *where) add(cond string, params []any) {
	w.conds = append(w.conds, cond)
	w.params = append(w.params, params)
}

func (w *where) text() (string, []any) {
	var ps []any
	for _, p := range w.params {
		ps = append(ps, p...)
	}
	return strings.Join(w.conds, " AND "), ps
}

// where translates filter candidates in allow-list order, then the
// or-group and and-group sets.
func (a *Allowlist) where(w *where, fs *Fields, r *queryir.Request) error {
	for _, f := range fs.List() {
		v, ok := ir.Lookup(r.Filters, f.Name)
		if !ok {
			continue
		}
		preds, warnings := queryir.ParseFilter(v)
		for _, msg := range warnings {
			a.logger.Debug("filter value rejected",
				zap.String("field", f.Name),
				zap.String("reason", msg),
				zap.String("component", "allowlist"))
		}
		for _, p := range preds {
			sql, params, err := a.compiler.Compile(f.Expr, p)
			if err != nil {
				return fmt.Errorf("filter %s: %w", f.Name, err)
			}
			w.add(sql, params)
		}
	}
	if err := a.group(w, fs, r.OrGroups, "OR"); err != nil {
		return err
	}
	return a.group(w, fs, r.AndGroups, "AND")
}

// group renders each nested filter map as one parenthesised expression and
// joins them with op into a single clause.
func (a *Allowlist) group(w *where, fs *Fields, maps []map[string]any, op string) error {
	var parts []string
	var params []any
	for _, m := range maps {
		var sub where
		if err := a.where(&sub, fs, queryir.ParseRequest(m)); err != nil {
			return err
		}
		if len(sub.conds) == 0 {
			continue
		}
		text, ps := sub.text()
		parts = append(parts, "("+text+")")
		params = append(params, ps...)
	}
	if len(parts) == 0 {
		return nil
	}
	w.add("("+strings.Join(parts, " "+op+" ")+")", params)
	return nil
}

// Saves projects the saveable fields of req into a column to value map for
// inserts and updates. Only fields bound to a plain column of the table
// qualify; nil values are omitted.
func (a *Allowlist) Saves(req map[string]any) map[string]any {
	fs := a.Fields(Saveable)
	out := make(map[string]any)
	for _, f := range fs.List() {
		col, ok := columnOf(f.Expr)
		if !ok {
			continue
		}
		if v, ok := req[f.Name]; ok && v != nil {
			out[col] = v
		}
	}
	return out
}
