package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qcase/internal/assoc"
	"github.com/roach88/qcase/internal/querysql"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	QueryOptions
	Check  bool // parse the rendered SQL
	Inline bool // also print the statement with literals inlined
}

// RenderResult is the rendered root statement.
type RenderResult struct {
	Table    string   `json:"table"`
	SQL      string   `json:"sql"`
	Params   []any    `json:"params"`
	Deferred []string `json:"deferred,omitempty"`
	Inline   string   `json:"inline,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "render [schemas-dir]",
		Short: "Print the SQL a request translates to",
		Long: `Translate a request through the allow-list of a table or model and
print the root statement with its parameters. Joined associations are part of
the statement; deferred ones are listed by path.

Examples:
  qcase render ./schemas --table users --request '{"age":{"ge":18}}'
  qcase render ./schemas --model user --request '{"word":"ann"}' --check`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, rootOpts.schemasDir(args), cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().BoolVar(&opts.Check, "check", false, "parse the rendered SQL and fail on syntax errors")
	cmd.Flags().BoolVar(&opts.Inline, "inline", false, "also print the statement with parameters inlined")

	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "table to query")
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model whose allow-lists translate the request")
	cmd.Flags().StringVarP(&opts.Request, "request", "r", "", "request as a JSON object")
	cmd.Flags().StringSliceVar(&opts.Assocs, "assocs", nil, "only follow these associations (names or tables)")
}

func runRender(opts *RenderOptions, schemasDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	schema, err := loadSchema(schemasDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	resolver := assoc.New(schema, nil, assoc.WithLogger(logger))
	plan, err := prepareQuery(&opts.QueryOptions, schema, resolver, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeBadRequest, err.Error(), nil)
		return WrapExitError(ExitFailure, "render failed", err)
	}

	sql, params, err := plan.Case().Build()
	if err != nil {
		_ = formatter.Error(ErrCodeBadRequest, err.Error(), nil)
		return WrapExitError(ExitFailure, "render failed", err)
	}
	if opts.Check {
		if err := querysql.Check(sql); err != nil {
			_ = formatter.Error(ErrCodeBadRequest, err.Error(), sql)
			return WrapExitError(ExitFailure, "syntax check failed", err)
		}
		formatter.VerboseLog("syntax check passed")
	}

	result := RenderResult{
		Table:    plan.Case().Table(),
		SQL:      sql,
		Params:   params,
		Deferred: plan.Deferred(),
	}
	if result.Params == nil {
		result.Params = []any{}
	}
	if opts.Inline {
		result.Inline = querysql.Inline(sql, params)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, result.SQL)
	fmt.Fprintf(w, "params: %v\n", result.Params)
	if len(result.Deferred) > 0 {
		fmt.Fprintf(w, "deferred: %s\n", strings.Join(result.Deferred, ", "))
	}
	if result.Inline != "" {
		fmt.Fprintf(w, "inline: %s\n", result.Inline)
	}
	return nil
}
