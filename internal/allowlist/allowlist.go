package allowlist

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
	"github.com/roach88/qcase/internal/querysql"
)

// Allowlist translates untrusted request maps into calls on a query case,
// accepting only field names configured per purpose.
//
// Configure it once, then call Trans concurrently; each call works on its
// own clone of the template. TransInPlace mutates the template and is not
// safe for concurrent use.
type Allowlist struct {
	template *querycase.Case
	compiler *querysql.SQLCompiler
	logger   *zap.Logger

	mu    sync.Mutex
	base  map[Purpose]*Fields
	specs map[Purpose][]string
	cache map[Purpose]*Fields
}

// Option configures an Allowlist.
type Option func(*Allowlist)

// WithLogger sets the logger. Rejected operator values are logged at debug
// level.
func WithLogger(l *zap.Logger) Option {
	return func(a *Allowlist) {
		a.logger = l
	}
}

// New creates an allow-list over template.
func New(template *querycase.Case, opts ...Option) *Allowlist {
	a := &Allowlist{
		template: template,
		compiler: querysql.NewSQLCompiler(),
		logger:   zap.NewNop(),
		base:     make(map[Purpose]*Fields),
		specs:    make(map[Purpose][]string),
		cache:    make(map[Purpose]*Fields),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Template returns the case Trans clones.
func (a *Allowlist) Template() *querycase.Case { return a.template }

// AllowTable allows every column of table plus the columns of associations
// that are joined into the same statement, under dotted names. The result
// becomes the listable, sortable and filtable base. Free-text search is never
// derived from a table.
func (a *Allowlist) AllowTable(table *ir.Table, cat ir.Catalog) error {
	fs := newFields()
	for _, col := range table.Fields() {
		fs.put(col, ".`"+col+"`")
	}
	if err := walkAssocs(fs, table.Assocs, cat, ""); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.base[Listable] = fs
	a.base[Sortable] = fs
	a.base[Filtable] = fs
	delete(a.specs, Listable)
	delete(a.specs, Sortable)
	delete(a.specs, Filtable)
	a.reset()
	return nil
}

// walkAssocs adds joined association columns depth first. Names are dotted
// by association path; expressions use the association name, which is the
// alias the resolver joins it under.
func walkAssocs(fs *Fields, assocs []ir.Assoc, cat ir.Catalog, path string) error {
	for _, as := range assocs {
		if !as.Join.IsJoin() || as.Type.ToMany() {
			continue
		}
		t, err := cat.Table(as.Target())
		if err != nil {
			return fmt.Errorf("allow association %s%s: %w", path, as.Name, err)
		}
		ax := path + as.Name + "."
		for _, col := range t.Fields() {
			fs.put(ax+col, "`"+as.Name+"`.`"+col+"`")
		}
		if err := walkAssocs(fs, as.Assocs, cat, ax); err != nil {
			return err
		}
	}
	return nil
}

// AllowModel allows the model's table, then applies every purpose list the
// model declares.
func (a *Allowlist) AllowModel(model *ir.Model, cat ir.Catalog) error {
	table, err := cat.Table(model.Table)
	if err != nil {
		return fmt.Errorf("allow model %s: %w", model.Name, err)
	}
	if err := a.AllowTable(table, cat); err != nil {
		return err
	}
	lists := map[Purpose][]string{
		Listable: model.Listable,
		Sortable: model.Sortable,
		Findable: model.Findable,
		Filtable: model.Filtable,
		Saveable: model.Saveable,
	}
	for _, p := range Purposes {
		if lists[p] != nil {
			a.Allow(p, lists[p]...)
		}
	}
	return nil
}

// Allow sets the field specs for a purpose. Each spec is "name:expression",
// a bare column, or any other expression used as its own name. Specs
// starting with "+" or "-" adjust the listable fields instead of replacing
// them. Calling Allow with no specs removes the purpose, which then falls
// back to its default.
func (a *Allowlist) Allow(p Purpose, specs ...string) *Allowlist {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.base, p)
	if len(specs) == 0 {
		delete(a.specs, p)
	} else {
		a.specs[p] = append([]string(nil), specs...)
	}
	a.reset()
	return a
}

// AllowForm applies purpose lists from form configuration. A list is split
// on ";" when it contains one, else on ",". Blank lists and unknown purposes
// are ignored.
func (a *Allowlist) AllowForm(form map[string]string) *Allowlist {
	for k, s := range form {
		p, ok := ParsePurpose(k)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		sep := ","
		if strings.Contains(s, ";") {
			sep = ";"
		}
		a.Allow(p, strings.Split(s, sep)...)
	}
	return a
}

func (a *Allowlist) reset() {
	a.cache = make(map[Purpose]*Fields)
}

// Fields returns the effective field list for a purpose.
func (a *Allowlist) Fields(p Purpose) *Fields {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fields(p)
}

func (a *Allowlist) fields(p Purpose) *Fields {
	if fs, ok := a.cache[p]; ok {
		return fs
	}
	fs := a.build(p)
	a.cache[p] = fs
	return fs
}

// build resolves a purpose: explicit specs, else relative adjustments of
// listable, else the table base, else listable (except findable).
func (a *Allowlist) build(p Purpose) *Fields {
	specs, ok := a.specs[p]
	if ok && p != Listable && isRelative(specs) {
		fs := a.fields(Listable).clone()
		drop := make(map[string]bool)
		for _, s := range specs {
			s = strings.TrimSpace(s)
			switch {
			case s == "":
			case strings.HasPrefix(s, "-"):
				drop[strings.TrimSpace(s[1:])] = true
			default:
				name, expr := parseSpec(strings.TrimSpace(strings.TrimPrefix(s, "+")))
				fs.put(name, quoteExpr(expr))
			}
		}
		return fs.without(drop)
	}
	if ok {
		fs := newFields()
		for _, s := range specs {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			name, expr := parseSpec(s)
			fs.put(name, quoteExpr(expr))
		}
		return fs
	}
	if fs, ok := a.base[p]; ok {
		return fs
	}
	if p != Listable && p != Findable {
		return a.fields(Listable)
	}
	return newFields()
}

func isRelative(specs []string) bool {
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
			return true
		}
	}
	return false
}
