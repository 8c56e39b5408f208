package assoc

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
)

// Execute fetches the root rows of plan and stitches the deferred
// associations into them breadth-first: every descriptor of one level is
// resolved, in declaration order, before any descriptor it uncovers.
//
// A Plan is consumed by Execute and must not be executed twice.
func (r *Resolver) Execute(ctx context.Context, plan *Plan) ([]ir.Row, error) {
	if plan.root.Link() == nil {
		plan.root.Use(r.link)
	}
	rows, err := plan.root.All(ctx)
	if err != nil {
		return nil, err
	}

	level := plan.deferred
	for _, p := range level {
		p.rows = rows
	}
	for depth := 1; len(level) > 0; depth++ {
		var next []*pending
		for _, p := range level {
			more, err := r.stitch(ctx, p)
			if err != nil {
				return nil, err
			}
			next = append(next, more...)
		}
		r.logger.Debug("association level done",
			zap.String("table", plan.table.Name),
			zap.Int("depth", depth),
			zap.Int("descriptors", len(level)),
		)
		level = next
	}
	return rows, nil
}

// stitch resolves one deferred descriptor with a single batched query and
// returns the descriptors it defers in turn.
func (r *Resolver) stitch(ctx context.Context, p *pending) ([]*pending, error) {
	a := p.assoc
	target, err := r.catalog.Table(a.Target())
	if err != nil {
		return nil, configError(ErrNoTable, a.Name, err)
	}

	var parentKey, childKey string
	if a.Type == ir.BelongsTo {
		parentKey, childKey = a.ForeignKey, orDefault(a.PrimaryKey, target.PrimaryKey)
	} else {
		parentKey, childKey = orDefault(a.PrimaryKey, p.parent.PrimaryKey), a.ForeignKey
	}
	many := a.Type.ToMany()

	owners := make([]ir.Row, 0, len(p.rows))
	var keys []any
	seen := make(map[string]bool)
	for _, row := range p.rows {
		m := ir.Owner(row, p.path)
		if m == nil {
			continue
		}
		owners = append(owners, m)
		v := m[parentKey]
		if v == nil {
			continue
		}
		if k := keyOf(v); !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}

	if len(keys) == 0 {
		if many {
			for _, m := range owners {
				m[a.Name] = []ir.Row{}
			}
		}
		return nil, nil
	}

	node := p.caze.GotJoin(a.Name).From(target.Name).By(querycase.None)
	override(node, a)
	auto := !node.HasSelect()
	if !auto {
		node.Select("." + quote(childKey))
	}
	node.Filter("."+quote(childKey)+" IN (?)", keys)

	nested, err := r.join(target, node, a.Assocs, "", auto, a.Type == ir.HasMore)
	if err != nil {
		return nil, err
	}
	if !node.HasSelect() {
		node.Select(".*")
	}

	sub, err := node.Use(r.link).All(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("association stitched",
		zap.String("assoc", joinPath(p.path, a.Name)),
		zap.String("table", target.Name),
		zap.Int("keys", len(keys)),
		zap.Int("rows", len(sub)),
	)

	matches := make(map[string][]ir.Row, len(keys))
	for _, row := range sub {
		if v := row[childKey]; v != nil {
			k := keyOf(v)
			matches[k] = append(matches[k], row)
		}
	}

	merge := p.merge && !many
	for _, m := range owners {
		var found []ir.Row
		if v := m[parentKey]; v != nil {
			found = matches[keyOf(v)]
		}
		switch {
		case many:
			m[a.Name] = append([]ir.Row{}, found...)
		case len(found) == 0:
		case merge:
			for k, v := range found[0] {
				if _, ok := m[k]; !ok {
					m[k] = v
				}
			}
		default:
			m[a.Name] = found[0]
		}
	}

	// merged columns live on the owners, so descriptors below a MERGE read
	// their keys there
	next := sub
	if merge {
		next = owners
	}
	for _, n := range nested {
		n.rows = next
	}
	return nested, nil
}

// keyOf normalizes a key value so an int64 from one driver matches the string
// form another returns.
func keyOf(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
