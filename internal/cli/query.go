package cli

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/allowlist"
	"github.com/roach88/qcase/internal/assoc"
	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
)

// QueryOptions holds the flags render and fetch share.
type QueryOptions struct {
	*RootOptions
	Table   string
	Model   string
	Request string   // JSON object
	Assocs  []string // restricts the associations followed
}

// prepareQuery resolves the table and model, translates the request through
// the allow-list and applies the association joins.
func prepareQuery(opts *QueryOptions, schema *ir.Schema, resolver *assoc.Resolver, logger *zap.Logger) (*assoc.Plan, error) {
	req, err := parseRequest(opts.Request)
	if err != nil {
		return nil, err
	}

	var model *ir.Model
	tableName := opts.Table
	if opts.Model != "" {
		if model, err = schema.Model(opts.Model); err != nil {
			return nil, err
		}
		if tableName == "" {
			tableName = model.Table
		}
	}
	if tableName == "" {
		return nil, fmt.Errorf("--table or --model is required")
	}
	table, err := schema.Table(tableName)
	if err != nil {
		return nil, err
	}

	al := allowlist.New(querycase.New(table.Name), allowlist.WithLogger(logger))
	if model != nil {
		err = al.AllowModel(model, schema)
	} else {
		err = al.AllowTable(table, schema)
	}
	if err != nil {
		return nil, err
	}

	c, err := al.Trans(req)
	if err != nil {
		return nil, err
	}
	if len(opts.Assocs) > 0 {
		c.SetOption(assoc.OptAssocs, opts.Assocs)
	}
	return resolver.Prepare(table, c)
}

// parseRequest decodes a JSON request object. An empty string is an empty
// request.
func parseRequest(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var req map[string]any
	if err := json.Unmarshal([]byte(s), &req); err != nil {
		return nil, fmt.Errorf("request must be a JSON object: %w", err)
	}
	return req, nil
}
