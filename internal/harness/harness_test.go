package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/qcase/internal/testutil"
)

func blogScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:        "blog",
		Description: "blog fixture",
		Setup:       append(append([]string{}, testutil.BlogDDL...), testutil.BlogSeed...),
		IDPrefix:    "new",
		Steps:       steps,
	}
}

func intp(n int) *int { return &n }

func TestRun_ModelRead(t *testing.T) {
	scenario := blogScenario(Step{
		Model: "user",
		Request: map[string]any{
			"age":      map[string]any{"ge": 18},
			"order-by": "-age",
		},
		Expect: &Expect{
			Params:   []any{18},
			RowCount: intp(2),
			Rows: []map[string]any{
				{"name": "cid", "profile": map[string]any{"bio": "reads sql"}, "posts": []any{}},
				{"name": "ann", "posts": []any{
					map[string]any{"title": "first"},
					map[string]any{"title": "second"},
				}},
			},
		},
	})

	result, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Steps, 1)
	step := result.Steps[0]
	assert.Equal(t, KindRead, step.Kind)
	assert.Equal(t, "users", step.Table, "table defaults to the model's")
	assert.Equal(t, []string{"posts"}, step.Deferred)
	assert.Contains(t, step.SQL, "LEFT JOIN `profiles` AS `profile`")
	assert.Contains(t, step.SQL, "ORDER BY `users`.`age` DESC")
}

func TestRun_WriteThenRead(t *testing.T) {
	scenario := blogScenario(
		Step{
			Table: "users",
			Write: map[string]any{
				"id": "u2",
				"posts": []any{
					map[string]any{"title": "hello"},
					map[string]any{"title": "again"},
				},
			},
		},
		Step{
			Table:   "users",
			Request: map[string]any{"id": "u2"},
			Expect: &Expect{
				Rows: []map[string]any{{
					"name": "bob",
					"posts": []any{
						map[string]any{"id": "new-001", "title": "again", "state": "draft"},
						// matched on title, so kept; the default state is written on update too
						map[string]any{"id": "p3", "title": "hello", "state": "draft"},
					},
				}},
			},
		},
	)

	result, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, KindWrite, result.Steps[0].Kind)
	assert.Empty(t, result.Steps[0].SQL)
}

func TestRun_DeleteThenRead(t *testing.T) {
	scenario := blogScenario(
		Step{Table: "posts", Delete: []any{"p1"}},
		Step{
			Table:   "posts",
			Request: map[string]any{"id": "p1"},
			Expect: &Expect{
				Rows: []map[string]any{{
					"title":     "first",
					"author":    map[string]any{"name": "ann"},
					"comments":  []any{},
					"post_tags": []any{},
				}},
			},
		},
	)

	result, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := blogScenario(
		Step{
			Name:    "wrong",
			Table:   "tags",
			Request: map[string]any{"order-by": "name"},
			Expect: &Expect{
				SQL:      "SELECT * FROM `tags`",
				Params:   []any{"x"},
				RowCount: intp(3),
				Rows:     []map[string]any{{"name": "sql"}, {"name": "go"}},
			},
		},
		Step{Table: "ghost"},
	)

	result, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "step 0 (wrong): expected sql")
	assert.Contains(t, result.Errors[1], "expected params")
	assert.Contains(t, result.Errors[2], "expected row_count 3, got 2")
	assert.Contains(t, result.Errors[3], "match at rows[0].name")
	assert.Contains(t, result.Errors[4], "step 1 (read ghost): unexpected error")

	assert.Equal(t, "SELECT * FROM `tags` ORDER BY `name`", result.Steps[0].SQL)
	assert.Contains(t, result.Steps[1].Error, `table "ghost" is not defined`)
}

func TestRun_ExpectedError(t *testing.T) {
	scenario := blogScenario(
		Step{Table: "ghost", Expect: &Expect{Error: "not defined"}},
		Step{Table: "tags", Expect: &Expect{Error: "boom"}},
		Step{Model: "nobody", Expect: &Expect{Error: `model "nobody"`}},
	)

	result, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error containing "boom", got success`)
}

func TestRun_BadPayload(t *testing.T) {
	scenario := blogScenario(Step{
		Table:  "users",
		Write:  map[string]any{"id": "u1", "profile": []any{"x"}},
		Expect: &Expect{Error: "BAD_PAYLOAD"},
	})

	result, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InfrastructureErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no schema", func(t *testing.T) {
		_, err := Run(ctx, blogScenario(Step{Table: "users"}), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no schema given")
	})

	t.Run("bad schema dir", func(t *testing.T) {
		s := blogScenario(Step{Table: "users"})
		s.Schema = t.TempDir()
		_, err := Run(ctx, s, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load schema")
	})

	t.Run("setup", func(t *testing.T) {
		s := blogScenario(Step{Table: "users"})
		s.Setup = []string{"CREATE TABLE"}
		_, err := Run(ctx, s, testutil.BlogSchema())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "setup step 0")
	})
}

func TestRun_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	scenario := blogScenario(Step{Table: "tags"})

	_, err := Run(context.Background(), scenario, testutil.BlogSchema(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	steps := logs.FilterMessage("step completed").All()
	require.Len(t, steps, 1)
	assert.Equal(t, "blog", steps[0].ContextMap()["scenario"])
	assert.Equal(t, int64(2), steps[0].ContextMap()["rows"])
	assert.NotEmpty(t, logs.FilterMessage("statement").All(), "store statements are logged")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := blogScenario(
		Step{Table: "posts", Write: map[string]any{"id": "p2", "comments": []any{map[string]any{"body": "x"}}}},
		Step{Table: "comments", Request: map[string]any{"post_id": "p2"}},
	)

	first, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario, testutil.BlogSchema())
	require.NoError(t, err)

	a, err := MarshalSnapshot("d", first)
	require.NoError(t, err)
	b, err := MarshalSnapshot("d", second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"id":"new-001"`)
}
