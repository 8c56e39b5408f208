package querycase

import (
	"regexp"
	"strings"

	"github.com/roach88/qcase/internal/ir"
)

// JoinKind says how a child case is joined to its parent.
type JoinKind uint8

const (
	// None keeps the child addressable but out of the rendered SQL.
	None JoinKind = iota
	Left
	Right
	Full
	Inner
	Cross
)

// String returns the SQL keyword for the join kind.
func (k JoinKind) String() string {
	switch k {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Full:
		return "FULL"
	case Inner:
		return "INNER"
	case Cross:
		return "CROSS"
	}
	return "NONE"
}

// KindOf maps an association join mode to a join kind. Only real SQL joins
// map; MERGE and the empty mode report false.
func KindOf(m ir.JoinMode) (JoinKind, bool) {
	switch m {
	case ir.JoinLeft:
		return Left, true
	case ir.JoinRight:
		return Right, true
	case ir.JoinFull:
		return Full, true
	case ir.JoinInner:
		return Inner, true
	case ir.JoinCross:
		return Cross, true
	}
	return None, false
}

// Case is one node of a query tree: a table, its fragments and its joined
// children.
//
// Fragments keep their leading separator (", " for select, group and order;
// " AND " for where and having) and are rendered lazily, so a case can be
// built up by many independent callers.
//
// A Case is not safe for concurrent mutation. Clone a template per request.
type Case struct {
	table string
	alias string

	fields  string
	wheres  string
	groups  string
	havings string
	orders  string
	limits  []int
	wparams []any
	hparams []any

	opts *Options
	link ir.Link

	kind     JoinKind
	on       string
	prefix   string
	prefixed bool
	joins    []*Case
}

// New creates a root case selecting from table, aliased by its own name.
func New(table string) *Case {
	return &Case{table: table, alias: table, opts: NewOptions()}
}

// From sets the table. An unset alias defaults to the table name.
func (c *Case) From(table string) *Case {
	c.table = table
	if c.alias == "" {
		c.alias = table
	}
	return c
}

// As sets the alias.
func (c *Case) As(alias string) *Case {
	c.alias = alias
	return c
}

// Table returns the table name.
func (c *Case) Table() string { return c.table }

// Alias returns the alias used to qualify this node's fields.
func (c *Case) Alias() string {
	if c.alias != "" {
		return c.alias
	}
	return c.table
}

var (
	leadComma = regexp.MustCompile(`^\s*,\s*`)
	leadAnd   = regexp.MustCompile(`(?i)^\s*AND\s+`)
	leadBool  = regexp.MustCompile(`(?i)^\s*(AND|OR)\s+`)
)

func listFragment(s string) string {
	return ", " + leadComma.ReplaceAllString(s, "")
}

func condFragment(s string) string {
	return " AND " + leadAnd.ReplaceAllString(s, "")
}

// Select appends select items.
func (c *Case) Select(fields string) *Case {
	c.fields += listFragment(fields)
	return c
}

// SetSelect replaces the select items.
func (c *Case) SetSelect(fields string) *Case {
	c.fields = ""
	if strings.TrimSpace(fields) != "" {
		c.fields = listFragment(fields)
	}
	return c
}

// HasSelect reports whether this node selects anything explicitly.
func (c *Case) HasSelect() bool { return c.fields != "" }

// Filter appends a WHERE condition, AND'd with the existing ones.
func (c *Case) Filter(where string, params ...any) *Case {
	c.wheres += condFragment(where)
	c.wparams = append(c.wparams, params...)
	return c
}

// HasFilter reports whether this node has a WHERE condition.
func (c *Case) HasFilter() bool { return c.wheres != "" }

// GroupBy appends GROUP BY items.
func (c *Case) GroupBy(fields string) *Case {
	c.groups += listFragment(fields)
	return c
}

// SetGroupBy replaces the GROUP BY items.
func (c *Case) SetGroupBy(fields string) *Case {
	c.groups = ""
	if strings.TrimSpace(fields) != "" {
		c.groups = listFragment(fields)
	}
	return c
}

// Having appends a HAVING condition.
func (c *Case) Having(where string, params ...any) *Case {
	c.havings += condFragment(where)
	c.hparams = append(c.hparams, params...)
	return c
}

// OrderBy appends ORDER BY items.
func (c *Case) OrderBy(fields string) *Case {
	c.orders += listFragment(fields)
	return c
}

// SetOrderBy replaces the ORDER BY items.
func (c *Case) SetOrderBy(fields string) *Case {
	c.orders = ""
	if strings.TrimSpace(fields) != "" {
		c.orders = listFragment(fields)
	}
	return c
}

// Limit sets the page bounds handed to the Link. A zero count leaves the
// rows after start unbounded; Limit(0, 0) clears both.
func (c *Case) Limit(start, count int) *Case {
	if start == 0 && count == 0 {
		c.limits = nil
	} else {
		c.limits = []int{start, count}
	}
	return c
}

// Start returns the first row offset.
func (c *Case) Start() int {
	if len(c.limits) > 0 {
		return c.limits[0]
	}
	return 0
}

// Count returns the row limit, 0 for unbounded.
func (c *Case) Count() int {
	if len(c.limits) > 1 {
		return c.limits[1]
	}
	return 0
}

// Join adds a LEFT joined child for table and returns it. An empty alias
// defaults to the table name.
func (c *Case) Join(table, alias string) *Case {
	child := &Case{table: table, alias: alias}
	if alias == "" {
		child.alias = table
	}
	return c.Attach(child)
}

// Attach adds child as a LEFT joined child and returns it. Its join condition
// and result prefix are reset and its whole subtree switches to this tree's
// options.
func (c *Case) Attach(child *Case) *Case {
	child.kind = Left
	child.on = ""
	child.prefix = ""
	child.prefixed = false
	child.bindOptions(c.opts)
	c.joins = append(c.joins, child)
	return child
}

func (c *Case) bindOptions(o *Options) {
	c.opts = o
	for _, j := range c.joins {
		j.bindOptions(o)
	}
}

// By sets the join kind.
func (c *Case) By(kind JoinKind) *Case {
	c.kind = kind
	return c
}

// On sets the join condition. Use `.` and `:` markers for the child and
// parent aliases, or leave fields bare to have them qualified with the
// child alias.
func (c *Case) On(expr string) *Case {
	c.on = expr
	return c
}

// In sets the result prefix under which the child's selected columns are
// aliased. An empty prefix means the child alias.
func (c *Case) In(prefix string) *Case {
	c.prefix = prefix
	c.prefixed = true
	return c
}

// Kind returns the join kind.
func (c *Case) Kind() JoinKind { return c.kind }

// Prefix returns the result prefix and whether one is set.
func (c *Case) Prefix() (string, bool) { return c.prefix, c.prefixed }

// Joins returns the direct children in declaration order.
func (c *Case) Joins() []*Case { return c.joins }

// HasJoin reports whether any direct child renders as a join.
func (c *Case) HasJoin() bool {
	for _, j := range c.joins {
		if j.kind != None {
			return true
		}
	}
	return false
}

// child returns the direct child with the given alias.
func (c *Case) child(alias string) *Case {
	for _, j := range c.joins {
		if j.Alias() == alias {
			return j
		}
	}
	return nil
}

// GetJoin walks the alias path and returns the node, or nil if any step is
// missing.
func (c *Case) GetJoin(path ...string) *Case {
	cur := c
	for _, n := range path {
		if cur = cur.child(n); cur == nil {
			return nil
		}
	}
	return cur
}

// GotJoin walks the alias path, creating missing steps as None children
// whose table is the alias.
func (c *Case) GotJoin(path ...string) *Case {
	cur := c
	for _, n := range path {
		next := cur.child(n)
		if next == nil {
			next = cur.Join(n, n).By(None)
		}
		cur = next
	}
	return cur
}

// Options returns the tree-wide option set.
func (c *Case) Options() *Options { return c.opts }

// Option returns a tree-wide option value, nil when unset.
func (c *Case) Option(key string) any {
	v, _ := c.opts.Get(key)
	return v
}

// SetOption sets a tree-wide option.
func (c *Case) SetOption(key string, v any) *Case {
	c.opts.Set(key, v)
	return c
}

// DelOption removes a tree-wide option and returns its old value.
func (c *Case) DelOption(key string) any {
	return c.opts.Del(key)
}

// Clone returns a deep copy of the tree rooted at c. The copy shares nothing
// mutable with c: fragments, parameters, children and options are copied.
func (c *Case) Clone() *Case {
	return c.cloneWith(c.opts.clone())
}

func (c *Case) cloneWith(o *Options) *Case {
	cp := *c
	cp.opts = o
	cp.limits = append([]int(nil), c.limits...)
	cp.wparams = append([]any(nil), c.wparams...)
	cp.hparams = append([]any(nil), c.hparams...)
	cp.joins = make([]*Case, len(c.joins))
	for i, j := range c.joins {
		cp.joins[i] = j.cloneWith(o)
	}
	return &cp
}
