package allowlist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
)

func nameAge() *Allowlist {
	return New(querycase.New("users")).Allow(Listable, "name:`name`", "age:`age`")
}

func build(t *testing.T, a *Allowlist, req map[string]any) (string, []any) {
	t.Helper()
	c, err := a.Trans(req)
	require.NoError(t, err)
	sql, params, err := c.Build()
	require.NoError(t, err)
	return sql, params
}

func testSchema() *ir.Schema {
	s := ir.NewSchema()
	s.Tables["users"] = &ir.Table{
		Name:       "users",
		PrimaryKey: "id",
		Columns:    []ir.Column{{Name: "id"}, {Name: "name"}, {Name: "age"}},
		Assocs: []ir.Assoc{
			{
				Type: ir.HasOne, Join: ir.JoinLeft, Name: "profile", TableName: "profiles", ForeignKey: "user_id",
				Assocs: []ir.Assoc{
					{Type: ir.HasOne, Join: ir.JoinInner, Name: "avatar", TableName: "avatars", ForeignKey: "profile_id"},
				},
			},
			{Type: ir.HasMany, Join: ir.JoinLeft, Name: "posts", ForeignKey: "author_id"},
			{Type: ir.HasOne, Join: ir.JoinMerge, Name: "settings", ForeignKey: "user_id"},
		},
	}
	s.Tables["profiles"] = &ir.Table{
		Name: "profiles", PrimaryKey: "id",
		Columns: []ir.Column{{Name: "id"}, {Name: "user_id"}, {Name: "bio"}},
	}
	s.Tables["avatars"] = &ir.Table{
		Name: "avatars", PrimaryKey: "id",
		Columns: []ir.Column{{Name: "profile_id"}, {Name: "url"}},
	}
	s.Tables["posts"] = &ir.Table{Name: "posts", PrimaryKey: "id", Columns: []ir.Column{{Name: "id"}}}
	s.Tables["settings"] = &ir.Table{Name: "settings", PrimaryKey: "id", Columns: []ir.Column{{Name: "theme"}}}
	return s
}

func TestReplyWith_Wildcard(t *testing.T) {
	sql, _ := build(t, nameAge(), map[string]any{"reply-with": []any{"*"}})
	assert.Equal(t, "SELECT `name` AS `name`, `age` AS `age` FROM `users`", sql)
}

func TestReplyWith_ExclusionOnly(t *testing.T) {
	sql, _ := build(t, nameAge(), map[string]any{"reply-with": []any{"-age"}})
	assert.Equal(t, "SELECT `name` AS `name` FROM `users`", sql)
}

func TestReplyWith_UnknownNamesIgnored(t *testing.T) {
	sql, _ := build(t, nameAge(), map[string]any{"reply-with": "age, password"})
	assert.Equal(t, "SELECT `age` AS `age` FROM `users`", sql)
}

func TestReplyWith_AllowListOrder(t *testing.T) {
	sql, _ := build(t, nameAge(), map[string]any{"reply-with": "age,name"})
	assert.Equal(t, "SELECT `name` AS `name`, `age` AS `age` FROM `users`", sql)
}

// Excluding one field pulls its whole group into the inclusion set before the
// exclusion is applied, even when other fields were requested explicitly.
func TestReplyWith_ExclusionForceIncludesSiblingGroup(t *testing.T) {
	s := testSchema()
	users, _ := s.Table("users")

	tpl := querycase.New("users")
	tpl.Join("profiles", "profile").On(".user_id = :id")
	a := New(tpl)
	require.NoError(t, a.AllowTable(users, s))

	sql, _ := build(t, a, map[string]any{"reply-with": []any{"profile.bio", "-name"}})
	assert.Equal(t,
		"SELECT `users`.`id` AS `id`, `users`.`age` AS `age`, `profile`.`bio` AS `profile.bio` FROM `users` LEFT JOIN `profiles` AS `profile` ON `profile`.user_id = `users`.id",
		sql)
}

func TestReplyWith_GroupExclusion(t *testing.T) {
	s := testSchema()
	users, _ := s.Table("users")
	a := New(querycase.New("users"))
	require.NoError(t, a.AllowTable(users, s))

	c, err := a.Trans(map[string]any{"reply-with": "-profile.*,-profile.avatar.*"})
	require.NoError(t, err)
	sql, err := c.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` AS `id`, `name` AS `name`, `age` AS `age` FROM `users`", sql)
}

func TestOrderBy(t *testing.T) {
	a := nameAge().Allow(Sortable, "name", "age:`age` DESC", "score:`points`")
	sql, _ := build(t, a, map[string]any{"order-by": "-age,-name,score,password"})
	assert.Equal(t, "SELECT `users`.* FROM `users` ORDER BY `age` DESC, `name` DESC, `points`", sql)
}

func TestWord(t *testing.T) {
	a := nameAge().Allow(Findable, "name", "email")
	sql, params := build(t, a, map[string]any{"word": "ada 50%"})

	assert.Equal(t,
		"SELECT `users`.* FROM `users` WHERE ((`name` LIKE ? ESCAPE '/' AND `name` LIKE ? ESCAPE '/') OR (`email` LIKE ? ESCAPE '/' AND `email` LIKE ? ESCAPE '/'))",
		sql)
	assert.Equal(t, []any{"%ada%", "%50/%%", "%ada%", "%50/%%"}, params)
}

func TestWord_NoFindableFields(t *testing.T) {
	sql, params := build(t, nameAge(), map[string]any{"word": "ada"})
	assert.Equal(t, "SELECT `users`.* FROM `users`", sql)
	assert.Empty(t, params)
}

func TestFilter_OperatorMap(t *testing.T) {
	sql, params := build(t, nameAge(), map[string]any{"age": map[string]any{"ge": 18, "lt": 65}})

	assert.Equal(t, "SELECT `users`.* FROM `users` WHERE `age` >= ? AND `age` < ?", sql)
	assert.Equal(t, []any{18, 65}, params)
}

func TestFilter_TypedOperatorMaps(t *testing.T) {
	tests := []struct {
		name       string
		req        map[string]any
		wantWhere  string
		wantParams []any
	}{
		{"map[string]string", map[string]any{"age": map[string]string{"ge": "18", "lt": "65"}}, "`age` >= ? AND `age` < ?", []any{"18", "65"}},
		{"map[string]int", map[string]any{"age": map[string]int{"gt": 20}}, "`age` > ?", []any{20}},
		{"map[string][]string", map[string]any{"name": map[string][]string{"in": {"a", "b"}}}, "`name` IN (?)", []any{[]any{"a", "b"}}},
		{"map[string][]int", map[string]any{"age": map[string][]int{"not-in": {1, 2}}}, "`age` NOT IN (?)", []any{[]any{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := build(t, nameAge(), tt.req)

			assert.Equal(t, "SELECT `users`.* FROM `users` WHERE "+tt.wantWhere, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestFilter_ValueShapes(t *testing.T) {
	tests := []struct {
		name       string
		req        map[string]any
		wantWhere  string
		wantParams []any
	}{
		{"scalar", map[string]any{"name": "ada"}, "`name` = ?", []any{"ada"}},
		{"collection", map[string]any{"name": []any{"a", "", "b"}}, "`name` IN (?)", []any{[]any{"a", "b"}}},
		{"empty collection", map[string]any{"name": []any{""}}, "", nil},
		{"blank string", map[string]any{"name": ""}, "", nil},
		{"leftover entries", map[string]any{"age": map[string]any{"x": 1, "y": 2}}, "`age` IN (?)", []any{[]any{1, 2}}},
		{"not-in", map[string]any{"age": map[string]any{"not-in": []int{1}}}, "`age` NOT IN (?)", []any{[]any{1}}},
		{"unknown field", map[string]any{"password": "x", "1=1; --": 1}, "", nil},
		{"allow-list order", map[string]any{"age": 3, "name": "a"}, "`name` = ? AND `age` = ?", []any{"a", 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := build(t, nameAge(), tt.req)
			want := "SELECT `users`.* FROM `users`"
			if tt.wantWhere != "" {
				want += " WHERE " + tt.wantWhere
			}
			assert.Equal(t, want, sql)
			if tt.wantParams == nil {
				assert.Empty(t, params)
			} else {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestFilter_RejectedOperatorValueIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := New(querycase.New("users"), WithLogger(zap.New(core))).Allow(Listable, "age")

	sql, params := build(t, a, map[string]any{"age": map[string]any{"eq": []any{1, 2}, "le": 9}})

	assert.Equal(t, "SELECT `users`.* FROM `users` WHERE `age` <= ?", sql)
	assert.Equal(t, []any{9}, params)
	require.Equal(t, 1, logs.FilterMessage("filter value rejected").Len())
	assert.Equal(t, "age", logs.All()[0].ContextMap()["field"])
}

func TestFilter_DottedPath(t *testing.T) {
	s := testSchema()
	users, _ := s.Table("users")
	a := New(querycase.New("users"))
	require.NoError(t, a.AllowTable(users, s))

	sql, params := build(t, a, map[string]any{
		"profile":    map[string]any{"bio": "hi"},
		"profile.id": 7,
		"avatar.url": "ignored",
		"reply-with": "id",
		"or-group":   nil,
		"and-group":  []any{},
		"order-by":   "",
		"word":       nil,
	})

	assert.Equal(t, "SELECT `id` AS `id` FROM `users` WHERE `profile`.`id` = ? AND `profile`.`bio` = ?", sql)
	assert.Equal(t, []any{7, "hi"}, params)
}

func TestFilter_Groups(t *testing.T) {
	sql, params := build(t, nameAge(), map[string]any{
		"age": 1,
		"or-group": []any{
			map[string]any{"name": "a"},
			map[string]any{"age": map[string]any{"gt": 3}, "name": "b"},
			map[string]any{"password": "x"},
		},
		"and-group": map[string]any{
			"0": map[string]any{"name": []any{"c", "d"}},
		},
	})

	assert.Equal(t,
		"SELECT `users`.* FROM `users` WHERE `age` = ? AND ((`name` = ?) OR (`name` = ? AND `age` > ?)) AND ((`name` IN (?)))",
		sql)
	assert.Equal(t, []any{1, "a", "b", 3, []any{"c", "d"}}, params)
}

func TestFilter_NestedGroups(t *testing.T) {
	sql, params := build(t, nameAge(), map[string]any{
		"or-group": []any{
			map[string]any{"and-group": []any{
				map[string]any{"name": "a"},
				map[string]any{"age": 2},
			}},
			map[string]any{"name": "z"},
		},
	})

	assert.Equal(t, "SELECT `users`.* FROM `users` WHERE ((((`name` = ?) AND (`age` = ?))) OR (`name` = ?))", sql)
	assert.Equal(t, []any{"a", 2, "z"}, params)
}

func TestTrans_LeavesTemplateAlone(t *testing.T) {
	a := nameAge()
	before, err := a.Template().SQL()
	require.NoError(t, err)

	_, err = a.Trans(map[string]any{"name": "ada", "reply-with": "name"})
	require.NoError(t, err)

	after, err := a.Template().SQL()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTransInPlace_MutatesTemplate(t *testing.T) {
	a := nameAge()
	req := map[string]any{"name": "ada"}

	c, err := a.TransInPlace(req)
	require.NoError(t, err)
	assert.Same(t, a.Template(), c)

	sql, err := a.Template().SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `users`.* FROM `users` WHERE `name` = ?", sql)
	assert.Equal(t, map[string]any{"name": "ada"}, req, "request is not consumed")
}

func TestTrans_ConcurrentUse(t *testing.T) {
	a := nameAge()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := a.Trans(map[string]any{"age": i, "reply-with": "-name"})
			if !assert.NoError(t, err) {
				return
			}
			_, params, err := c.Build()
			assert.NoError(t, err)
			assert.Equal(t, []any{i}, params)
		}(i)
	}
	wg.Wait()
}

func TestAllowTable_Fields(t *testing.T) {
	s := testSchema()
	users, _ := s.Table("users")
	a := New(querycase.New("users"))
	require.NoError(t, a.AllowTable(users, s))

	fs := a.Fields(Listable)
	assert.Equal(t, []string{
		"id", "name", "age",
		"profile.id", "profile.user_id", "profile.bio",
		"profile.avatar.profile_id", "profile.avatar.url",
	}, fs.Names())

	expr, ok := fs.Get("profile.avatar.url")
	require.True(t, ok)
	assert.Equal(t, "`avatar`.`url`", expr)
	expr, _ = fs.Get("id")
	assert.Equal(t, ".`id`", expr)

	assert.Equal(t, fs.Names(), a.Fields(Sortable).Names())
	assert.Equal(t, fs.Names(), a.Fields(Filtable).Names())
	assert.Equal(t, 0, a.Fields(Findable).Len(), "free-text search is never derived from a table")
}

func TestAllowTable_UnknownAssocTable(t *testing.T) {
	s := testSchema()
	delete(s.Tables, "avatars")
	users, _ := s.Table("users")

	err := New(querycase.New("users")).AllowTable(users, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile.avatar")
}

func TestAllowModel(t *testing.T) {
	s := testSchema()
	s.Models["people"] = &ir.Model{
		Name:     "people",
		Table:    "users",
		Listable: []string{"id", "name"},
		Findable: []string{"name"},
	}
	m, _ := s.Model("people")

	a := New(querycase.New("users"))
	require.NoError(t, a.AllowModel(m, s))

	assert.Equal(t, []string{"id", "name"}, a.Fields(Listable).Names())
	assert.Equal(t, []string{"name"}, a.Fields(Findable).Names())
	assert.Contains(t, a.Fields(Sortable).Names(), "profile.bio", "unset purposes keep the table base")
	assert.Equal(t, []string{"id", "name"}, a.Fields(Saveable).Names())

	s.Models["broken"] = &ir.Model{Name: "broken", Table: "nope"}
	assert.Error(t, a.AllowModel(s.Models["broken"], s))
}

func TestAllow_RelativeLists(t *testing.T) {
	a := nameAge().Allow(Sortable, "-age", "+score:`points` * 2")

	fs := a.Fields(Sortable)
	assert.Equal(t, []string{"name", "score"}, fs.Names())
	expr, _ := fs.Get("score")
	assert.Equal(t, "`points` * 2", expr)

	a.Allow(Listable, "name", "age", "email")
	assert.Equal(t, []string{"name", "email", "score"}, a.Fields(Sortable).Names(), "relative lists follow listable")
}

func TestAllow_RemovePurpose(t *testing.T) {
	a := nameAge().Allow(Filtable, "name")
	assert.Equal(t, []string{"name"}, a.Fields(Filtable).Names())

	a.Allow(Filtable)
	assert.Equal(t, []string{"name", "age"}, a.Fields(Filtable).Names())
}

func TestAllowForm(t *testing.T) {
	a := New(querycase.New("users")).AllowForm(map[string]string{
		"listable": "name; n:COUNT(a, b)",
		"FINDABLE": "name,email",
		"sortable": "  ",
		"bogus":    "x",
	})

	assert.Equal(t, []string{"name", "n"}, a.Fields(Listable).Names())
	expr, _ := a.Fields(Listable).Get("n")
	assert.Equal(t, "COUNT(a, b)", expr)
	assert.Equal(t, []string{"name", "email"}, a.Fields(Findable).Names())
	assert.Equal(t, []string{"name", "n"}, a.Fields(Sortable).Names())
}

func TestSaves(t *testing.T) {
	a := New(querycase.New("users")).Allow(Listable, "name:`name`", "years:age", "n:COUNT(*)")

	got := a.Saves(map[string]any{"name": "ada", "years": 36, "n": 3, "x": 1})
	assert.Equal(t, map[string]any{"name": "ada", "age": 36}, got)

	got = a.Saves(map[string]any{"name": nil})
	assert.Empty(t, got)
}

func TestSaves_TableBase(t *testing.T) {
	s := testSchema()
	users, _ := s.Table("users")
	a := New(querycase.New("users"))
	require.NoError(t, a.AllowTable(users, s))
	a.Allow(Saveable, "name", "age")

	got := a.Saves(map[string]any{"id": "u1", "name": "ada", "profile.bio": "x"})
	assert.Equal(t, map[string]any{"name": "ada"}, got)
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec, name, expr string
	}{
		{"name", "name", "name"},
		{"n:COUNT(*)", "n", "COUNT(*)"},
		{"profile.bio:`p`.`bio`", "profile.bio", "`p`.`bio`"},
		{"COUNT(a:b)", "COUNT(a:b)", "COUNT(a:b)"},
	}
	for _, tt := range tests {
		name, expr := parseSpec(tt.spec)
		assert.Equal(t, tt.name, name, tt.spec)
		assert.Equal(t, tt.expr, expr, tt.spec)
	}
	assert.Equal(t, ".`age`", quoteExpr("age"))
	assert.Equal(t, "`age`", quoteExpr("`age`"))
}
