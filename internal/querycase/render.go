package querycase

import (
	"strings"

	"github.com/roach88/qcase/internal/querysql"
)

// clauses accumulates the rendered pieces of a tree walk.
type clauses struct {
	from, fields, wheres, groups, havings, orders strings.Builder
}

// SQL renders the SELECT statement for the tree rooted at c. The limit is not
// part of the text; pass Start and Count to the Link.
func (c *Case) SQL() (string, error) {
	var cl clauses
	if err := c.render(&cl, "", true); err != nil {
		return "", err
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if cl.fields.Len() != 0 {
		sql.WriteString(leadComma.ReplaceAllString(cl.fields.String(), ""))
	} else {
		sql.WriteString("`" + c.Alias() + "`.*")
	}
	sql.WriteString(" FROM ")
	sql.WriteString(cl.from.String())
	if cl.wheres.Len() != 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(leadBool.ReplaceAllString(cl.wheres.String(), ""))
	}
	if cl.groups.Len() != 0 {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(leadComma.ReplaceAllString(cl.groups.String(), ""))
	}
	if cl.havings.Len() != 0 {
		sql.WriteString(" HAVING ")
		sql.WriteString(leadBool.ReplaceAllString(cl.havings.String(), ""))
	}
	if cl.orders.Len() != 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(leadComma.ReplaceAllString(cl.orders.String(), ""))
	}
	return sql.String(), nil
}

// render appends this node and its joined children. parent is the parent
// alias; root marks the node the walk started from.
func (c *Case) render(cl *clauses, parent string, root bool) error {
	if c.table == "" {
		return &Error{Code: ErrCodeNoTable, Message: ErrNoTable.Message, Alias: c.alias}
	}
	if !root && c.kind == None {
		return nil
	}

	alias := c.Alias()
	from := "`" + c.table + "`"
	if alias != c.table {
		from += " AS `" + alias + "`"
	}
	if !root {
		from = " " + c.kind.String() + " JOIN " + from
		if c.on != "" {
			from += " ON " + c.qualify(c.on, alias, parent, root)
		}
	}
	cl.from.WriteString(from)

	if c.fields != "" {
		s := c.qualify(c.fields, alias, parent, root)
		if !root && c.prefixed {
			p := c.prefix
			if p == "" {
				p = alias
			}
			s = aliasColumns(s, p)
		}
		cl.fields.WriteString(s)
	}
	if c.wheres != "" {
		cl.wheres.WriteString(c.qualify(c.wheres, alias, parent, root))
	}
	if c.groups != "" {
		cl.groups.WriteString(c.qualify(c.groups, alias, parent, root))
	}

	for _, j := range c.joins {
		if j.kind == None {
			continue
		}
		if err := j.render(cl, alias, false); err != nil {
			return err
		}
	}

	if c.havings != "" {
		cl.havings.WriteString(c.qualify(c.havings, alias, parent, root))
	}
	if c.orders != "" {
		cl.orders.WriteString(c.qualify(c.orders, alias, parent, root))
	}
	return nil
}

// qualify runs both prefixing passes. A root without joins has nothing to
// disambiguate, so its markers are only stripped.
func (c *Case) qualify(s, alias, parent string, root bool) string {
	if root && !c.HasJoin() {
		return rewriteSigils(s, "", "", true)
	}
	return rewriteSigils(qualifyFields(s, alias), alias, parent, false)
}

// Params returns the bound parameters in placeholder order: every WHERE
// parameter of the rendered tree first, then every HAVING parameter.
func (c *Case) Params() []any {
	var w, h []any
	c.collectParams(&w, &h, true)
	return append(w, h...)
}

func (c *Case) collectParams(w, h *[]any, root bool) {
	if !root && c.kind == None {
		return
	}
	*w = append(*w, c.wparams...)
	*h = append(*h, c.hparams...)
	for _, j := range c.joins {
		j.collectParams(w, h, false)
	}
}

// Build renders the statement and its parameters together.
func (c *Case) Build() (string, []any, error) {
	sql, err := c.SQL()
	if err != nil {
		return "", nil, err
	}
	return sql, c.Params(), nil
}

// String renders the statement with parameters inlined as literals. It is
// meant for logs and debugging only, never for execution.
func (c *Case) String() string {
	sql, params, err := c.Build()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return querysql.Inline(sql, params)
}

// StripSigils drops every `.`, `:` and `!` field marker from s, for
// fragments used outside a query tree.
func StripSigils(s string) string {
	return rewriteSigils(s, "", "", true)
}

// rootWhere renders the root WHERE fragment alone, markers stripped, for
// direct mutations. Joined conditions are never included.
func (c *Case) rootWhere() string {
	if c.wheres == "" {
		return ""
	}
	s := rewriteSigils(c.wheres, "", "", true)
	return strings.TrimSpace(leadBool.ReplaceAllString(s, ""))
}
