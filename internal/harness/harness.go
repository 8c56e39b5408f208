package harness

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/allowlist"
	"github.com/roach88/qcase/internal/assoc"
	"github.com/roach88/qcase/internal/compiler"
	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
	"github.com/roach88/qcase/internal/querysql"
	"github.com/roach88/qcase/internal/store"
	"github.com/roach88/qcase/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs steps against one database with deterministic generated keys.
type Harness struct {
	schema   *ir.Schema
	store    *store.Store
	resolver *assoc.Resolver
	ids      *testutil.DeterministicIDs
	logger   *zap.Logger
}

// Option configures a scenario run.
type Option func(*config)

type config struct {
	logger *zap.Logger
}

// WithLogger sets the logger handed to the store, allow-lists and
// resolver. Statements are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Run executes a scenario against schema and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A nil schema is loaded from the scenario's Schema directory.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Run setup statements
// 3. Execute steps in order, recording SQL, params and rows
// 4. Compare each step against its expect clause
//
// The returned error reports infrastructure failures (schema, database,
// setup). Failed expectations are recorded on the result instead.
func Run(ctx context.Context, scenario *Scenario, schema *ir.Schema, opts ...Option) (*Result, error) {
	cfg := config{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}

	if schema == nil {
		if scenario.Schema == "" {
			return nil, fmt.Errorf("scenario %s: no schema given", scenario.Name)
		}
		var err error
		if schema, err = compiler.LoadSchema(scenario.Schema); err != nil {
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
	}

	st, err := store.OpenSQLite(":memory:", store.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := testutil.NewDeterministicIDs(scenario.IDPrefix)
	h := &Harness{
		schema: schema,
		store:  st,
		resolver: assoc.New(schema, st,
			assoc.WithLogger(cfg.logger),
			assoc.WithIDGenerator(ids),
		),
		ids:    ids,
		logger: cfg.logger.With(zap.String("scenario", scenario.Name)),
	}

	for i, stmt := range scenario.Setup {
		if _, err := st.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.runStep(ctx, step)
		if err != nil {
			sr.Error = err.Error()
		}
		result.AddStep(sr)

		for _, msg := range checkStep(sr, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, stepLabel(i, step), msg))
		}

		h.logger.Debug("step completed",
			zap.Int("step", i),
			zap.String("kind", sr.Kind),
			zap.String("table", sr.Table),
			zap.Int("rows", len(sr.Rows)),
			zap.Bool("failed", sr.Error != ""),
		)
	}

	return result, nil
}

func stepLabel(i int, s Step) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s %s", s.Kind(), s.Table)
}

// runStep executes one step. The StepResult is filled as far as the step
// got before an error.
func (h *Harness) runStep(ctx context.Context, step Step) (StepResult, error) {
	sr := StepResult{Name: step.Name, Kind: step.Kind(), Table: step.Table}

	var model *ir.Model
	if step.Model != "" {
		m, err := h.schema.Model(step.Model)
		if err != nil {
			return sr, err
		}
		model = m
		if sr.Table == "" {
			sr.Table = m.Table
		}
	}
	table, err := h.schema.Table(sr.Table)
	if err != nil {
		return sr, err
	}

	switch sr.Kind {
	case KindWrite:
		return sr, h.resolver.InsertMore(ctx, table, step.Write)
	case KindDelete:
		return sr, h.resolver.DeleteMore(ctx, table, step.Delete...)
	}

	al := allowlist.New(querycase.New(table.Name), allowlist.WithLogger(h.logger))
	if model != nil {
		err = al.AllowModel(model, h.schema)
	} else {
		err = al.AllowTable(table, h.schema)
	}
	if err != nil {
		return sr, err
	}

	c, err := al.Trans(step.Request)
	if err != nil {
		return sr, err
	}
	plan, err := h.resolver.Prepare(table, c)
	if err != nil {
		return sr, err
	}
	sr.Deferred = plan.Deferred()

	sr.SQL, sr.Params, err = plan.Case().Build()
	if err != nil {
		return sr, err
	}
	if err := querysql.Check(sr.SQL); err != nil {
		return sr, err
	}

	rows, err := h.resolver.Execute(ctx, plan)
	if err != nil {
		var ee *ir.ExecError
		if errors.As(err, &ee) {
			return sr, fmt.Errorf("%s: %w", ee.Op, ee.Err)
		}
		return sr, err
	}
	sr.Rows = rows
	return sr, nil
}
