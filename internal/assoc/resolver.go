package assoc

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
)

// Option keys read from the query tree. Each holds a []string; when set, only
// descriptors it names are followed.
const (
	// OptAssocs lists descriptor names or target tables.
	OptAssocs = "ASSOCS"

	// OptAssocTypes lists descriptor types, e.g. "HAS_ONE".
	OptAssocTypes = "ASSOC_TYPES"

	// OptAssocJoins lists join modes for joined descriptors, e.g. "LEFT".
	OptAssocJoins = "ASSOC_JOINS"
)

// Resolver expands association descriptors into joins and deferred batch
// queries, and writes association payloads back.
//
// A Resolver holds no per-call state and is safe for concurrent use when its
// Link is.
type Resolver struct {
	catalog ir.Catalog
	link    ir.Link
	ids     ir.IDGenerator
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithIDGenerator sets the generator for primary keys of inserted rows. The
// default generates UUIDv7 keys.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(r *Resolver) { r.ids = g }
}

// New creates a Resolver reading metadata from catalog and executing through
// link.
func New(catalog ir.Catalog, link ir.Link, opts ...Option) *Resolver {
	r := &Resolver{
		catalog: catalog,
		link:    link,
		ids:     ir.UUIDv7Generator{},
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.With(zap.String("component", "assoc"))
	return r
}

// pending is a descriptor resolved after the owning rows are fetched.
type pending struct {
	assoc  ir.Assoc
	parent *ir.Table
	caze   *querycase.Case // node the descriptor was found under
	path   string          // owner path within each row of rows
	merge  bool
	rows   []ir.Row
}

// Plan is a query tree with phase 1 applied and the deferred descriptors it
// left for stitching.
type Plan struct {
	table    *ir.Table
	root     *querycase.Case
	deferred []*pending
}

// Case returns the expanded root case.
func (p *Plan) Case() *querycase.Case { return p.root }

// Deferred returns the dotted paths of the descriptors resolved after the root
// fetch, in the order they will be stitched.
func (p *Plan) Deferred() []string {
	out := make([]string, len(p.deferred))
	for i, d := range p.deferred {
		out[i] = joinPath(d.path, d.assoc.Name)
	}
	return out
}

// Prepare expands c, a case on table, into a join tree. Joined descriptors
// become child nodes; the rest are deferred to Execute.
func (r *Resolver) Prepare(table *ir.Table, c *querycase.Case) (*Plan, error) {
	auto := !c.HasSelect()
	deferred, err := r.join(table, c, table.Assocs, "", auto, false)
	if err != nil {
		return nil, err
	}
	if table.Defaults != nil {
		override(c, *table.Defaults)
	}
	if !c.HasSelect() {
		c.Select(".*")
	}
	return &Plan{table: table, root: c, deferred: deferred}, nil
}

// Fetch prepares c and executes it, returning nested rows with every
// association resolved.
func (r *Resolver) Fetch(ctx context.Context, table *ir.Table, c *querycase.Case) ([]ir.Row, error) {
	plan, err := r.Prepare(table, c)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, plan)
}

// FetchTable is Fetch with the table looked up by name.
func (r *Resolver) FetchTable(ctx context.Context, name string, c *querycase.Case) ([]ir.Row, error) {
	table, err := r.catalog.Table(name)
	if err != nil {
		return nil, configError(ErrNoTable, name, err)
	}
	return r.Fetch(ctx, table, c)
}

// join runs phase 1 over assocs under c. auto selects every target column of
// joined children that have no select of their own; promote turns
// descriptors without a join mode into MERGE.
func (r *Resolver) join(table *ir.Table, c *querycase.Case, assocs []ir.Assoc, path string, auto, promote bool) ([]*pending, error) {
	var deferred []*pending
	for _, a := range assocs {
		if !follow(c, a) {
			continue
		}
		if err := checkAssoc(a); err != nil {
			return nil, err
		}

		if !a.Join.IsJoin() || a.Type.ToMany() {
			if n := c.GetJoin(a.Name); n != nil {
				n.By(querycase.None)
			}
			deferred = append(deferred, &pending{
				assoc:  a,
				parent: table,
				caze:   c,
				path:   path,
				merge:  a.Join == ir.JoinMerge || (promote && a.Join == ir.JoinNone),
			})
			continue
		}
		if joins := querycase.OptionAs[[]string](c, OptAssocJoins, nil); joins != nil &&
			!slices.Contains(joins, string(a.Join)) {
			continue
		}

		target, err := r.catalog.Table(a.Target())
		if err != nil {
			return nil, configError(ErrNoTable, a.Name, err)
		}
		kind, _ := querycase.KindOf(a.Join)

		child := c.GotJoin(a.Name).From(target.Name).By(kind).In(joinPath(path, a.Name))
		switch a.Type {
		case ir.BelongsTo:
			child.On(":" + quote(a.ForeignKey) + " = ." + quote(orDefault(a.PrimaryKey, target.PrimaryKey)))
		case ir.HasOne:
			child.On(":" + quote(orDefault(a.PrimaryKey, table.PrimaryKey)) + " = ." + quote(a.ForeignKey))
		}
		override(child, a)

		nested, err := r.join(target, child, a.Assocs, joinPath(path, a.Name), auto, false)
		if err != nil {
			return nil, err
		}
		deferred = append(deferred, nested...)

		if auto && !child.HasSelect() {
			for _, f := range target.Fields() {
				child.Select("." + quote(f))
			}
		}
	}
	return deferred, nil
}

// follow applies the ASSOCS and ASSOC_TYPES options.
func follow(c *querycase.Case, a ir.Assoc) bool {
	if names := querycase.OptionAs[[]string](c, OptAssocs, nil); names != nil &&
		!slices.Contains(names, a.Name) && !slices.Contains(names, a.Target()) {
		return false
	}
	if types := querycase.OptionAs[[]string](c, OptAssocTypes, nil); types != nil &&
		!slices.Contains(types, string(a.Type)) {
		return false
	}
	return true
}

func checkAssoc(a ir.Assoc) error {
	switch a.Type {
	case ir.BelongsTo, ir.HasOne, ir.HasMany, ir.HasMore:
	default:
		return configError(ErrUnknownType, a.Name, nil)
	}
	switch a.Join {
	case ir.JoinNone, ir.JoinMerge, ir.JoinLeft, ir.JoinRight, ir.JoinFull, ir.JoinInner:
	case ir.JoinCross:
		return configError(ErrCrossJoin, a.Name, nil)
	default:
		return configError(ErrUnknownJoin, a.Name, nil)
	}
	return nil
}

// override applies a descriptor's query overrides to c.
func override(c *querycase.Case, a ir.Assoc) {
	if a.Select != "" {
		c.SetSelect(a.Select)
	}
	if a.OrderBy != "" {
		c.SetOrderBy(a.OrderBy)
	}
	if a.Filter != "" {
		c.Filter(a.Filter)
	}
	if a.GroupBy != "" {
		c.SetGroupBy(a.GroupBy)
	}
	if a.Having != "" {
		c.Having(a.Having)
	}
	if a.Limit != 0 {
		c.Limit(0, a.Limit)
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func quote(name string) string {
	return "`" + name + "`"
}
