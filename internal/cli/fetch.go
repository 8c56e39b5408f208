package cli

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/assoc"
	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/store"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	QueryOptions
	Driver string
	DSN    string
	Start  int
	Limit  int
}

// FetchResult holds the nested rows a fetch returned.
type FetchResult struct {
	Table string   `json:"table"`
	SQL   string   `json:"sql"`
	Rows  []ir.Row `json:"rows"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "fetch [schemas-dir]",
		Short: "Run a request against the database and print nested rows",
		Long: `Translate a request like render does, run it against the configured
database and print the rows with every association resolved.

The database defaults to database.driver and database.dsn from the config
(QCASE_DATABASE_DRIVER and QCASE_DATABASE_DSN in the environment).

Examples:
  qcase fetch ./schemas --table posts --request '{"state":"pub"}'
  qcase fetch ./schemas --model user --driver mysql --dsn 'u:p@tcp(db)/app'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, rootOpts.schemasDir(args), cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver: sqlite3 or mysql (default from config)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database DSN (default from config)")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "number of rows to skip (with --limit)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of rows (0 for all)")

	return cmd
}

func runFetch(opts *FetchOptions, schemasDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	schema, err := loadSchema(schemasDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	cfg := opts.config().Database
	driver, dsn := cfg.Driver, cfg.DSN
	if opts.Driver != "" {
		driver = opts.Driver
	}
	if opts.DSN != "" {
		dsn = opts.DSN
	}

	reg := prometheus.NewRegistry()
	st, err := store.Open(driver, dsn,
		store.WithLogger(logger),
		store.WithMetrics(store.NewMetrics(reg)),
	)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", zap.Error(closeErr))
		}
	}()

	resolver := assoc.New(schema, st, assoc.WithLogger(logger))
	plan, err := prepareQuery(&opts.QueryOptions, schema, resolver, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeBadRequest, err.Error(), nil)
		return WrapExitError(ExitFailure, "fetch failed", err)
	}
	if opts.Limit > 0 {
		plan.Case().Limit(opts.Start, opts.Limit)
	}
	sql, _, err := plan.Case().Build()
	if err != nil {
		_ = formatter.Error(ErrCodeBadRequest, err.Error(), nil)
		return WrapExitError(ExitFailure, "fetch failed", err)
	}

	rows, err := resolver.Execute(commandContext(cmd), plan)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitFailure, "fetch failed", err)
	}
	if rows == nil {
		rows = []ir.Row{}
	}
	logStatementCounts(formatter, reg)

	result := FetchResult{Table: plan.Case().Table(), SQL: sql, Rows: rows}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	enc := json.NewEncoder(formatter.Writer)
	enc.SetIndent("", "  ")
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	fmt.Fprintf(formatter.Writer, "%d row(s)\n", len(rows))
	return nil
}

// logStatementCounts reports the statements the store executed, per
// operation, in verbose mode.
func logStatementCounts(formatter *OutputFormatter, reg *prometheus.Registry) {
	if !formatter.Verbose {
		return
	}
	families, err := reg.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		if mf.GetName() != "qcase_store_statement_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "op" {
					formatter.VerboseLog("statements: %s=%d", l.GetValue(), int64(m.GetCounter().GetValue()))
				}
			}
		}
	}
}
