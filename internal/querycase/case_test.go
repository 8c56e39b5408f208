package querycase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcase/internal/ir"
)

func TestFragments_NormaliseSeparators(t *testing.T) {
	c := New("users")
	c.Select(", id").Select("name")
	c.Filter("AND age > ?", 1).Filter("and active = ?", true)
	c.OrderBy(",name")

	sql, params, err := c.Build()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM `users` WHERE age > ? AND active = ? ORDER BY name", sql)
	assert.Equal(t, []any{1, true}, params)
}

func TestSetters_Replace(t *testing.T) {
	c := New("users").Select("id").OrderBy("id").GroupBy("id")
	c.SetSelect("name").SetOrderBy("").SetGroupBy("  ")

	sql, err := c.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM `users`", sql)
	assert.True(t, c.HasSelect())

	c.SetSelect("")
	assert.False(t, c.HasSelect())
}

func TestLimit(t *testing.T) {
	c := New("users")
	assert.Equal(t, 0, c.Start())
	assert.Equal(t, 0, c.Count())

	c.Limit(20, 10)
	assert.Equal(t, 20, c.Start())
	assert.Equal(t, 10, c.Count())

	sql, err := c.SQL()
	require.NoError(t, err)
	assert.NotContains(t, sql, "LIMIT")

	c.Limit(5, 0)
	assert.Equal(t, 5, c.Start(), "a zero count keeps the offset")
	assert.Equal(t, 0, c.Count())

	c.Limit(0, 0)
	assert.Equal(t, 0, c.Start())
	assert.Equal(t, 0, c.Count())
}

func TestFromAndAlias(t *testing.T) {
	c := &Case{}
	c.From("users")
	assert.Equal(t, "users", c.Table())
	assert.Equal(t, "users", c.Alias())

	c.As("u").From("people")
	assert.Equal(t, "people", c.Table())
	assert.Equal(t, "u", c.Alias())
}

func TestSigilsAreNoOpAtRoot(t *testing.T) {
	plain := New("users").
		Select("id, name").
		Filter("age > ? AND id <> ?", 18, 7).
		OrderBy("name DESC")
	marked := New("users").
		Select(".id, !name").
		Filter(":age > ? AND .id <> ?", 18, 7).
		OrderBy(".name DESC")
	marked.GotJoin("profiles")

	a, ap, err := plain.Build()
	require.NoError(t, err)
	b, bp, err := marked.Build()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, ap, bp)
	assert.Equal(t, "SELECT id, name FROM `users` WHERE age > ? AND id <> ? ORDER BY name DESC", a)
}

func TestNoTable(t *testing.T) {
	_, err := New("").SQL()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTable))
	assert.True(t, IsConfigError(err))

	c := New("users")
	c.Join("", "x")
	_, err = c.SQL()
	require.ErrorIs(t, err, ErrNoTable)

	var qe *Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "x", qe.Alias)
}

func TestJoinKinds(t *testing.T) {
	tests := []struct {
		kind JoinKind
		want string
	}{
		{Left, "SELECT `users`.* FROM `users` LEFT JOIN `roles`"},
		{Right, "SELECT `users`.* FROM `users` RIGHT JOIN `roles`"},
		{Full, "SELECT `users`.* FROM `users` FULL JOIN `roles`"},
		{Inner, "SELECT `users`.* FROM `users` INNER JOIN `roles`"},
		{Cross, "SELECT `users`.* FROM `users` CROSS JOIN `roles`"},
		{None, "SELECT `users`.* FROM `users`"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c := New("users")
			c.Join("roles", "").By(tt.kind)
			sql, err := c.SQL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf(ir.JoinInner)
	assert.True(t, ok)
	assert.Equal(t, Inner, k)

	_, ok = KindOf(ir.JoinMerge)
	assert.False(t, ok)
	_, ok = KindOf(ir.JoinNone)
	assert.False(t, ok)
}

func TestGetAndGotJoin(t *testing.T) {
	c := New("users")
	assert.Nil(t, c.GetJoin("profile", "avatar"))

	avatar := c.GotJoin("profile", "avatar")
	require.NotNil(t, avatar)
	assert.Equal(t, None, avatar.Kind())
	assert.Equal(t, "avatar", avatar.Table())
	assert.Same(t, avatar, c.GetJoin("profile", "avatar"))
	assert.Same(t, avatar, c.GotJoin("profile", "avatar"))
	assert.False(t, c.HasJoin(), "NONE children do not count as joins")

	c.GetJoin("profile").By(Left)
	assert.True(t, c.HasJoin())
}

func TestAttach_ResetsJoinState(t *testing.T) {
	child := New("roles").By(Inner).On("x = y").In("r")
	child.Join("perms", "")

	c := New("users")
	c.Attach(child)

	assert.Equal(t, Left, child.Kind())
	_, prefixed := child.Prefix()
	assert.False(t, prefixed)

	c.SetOption("tenant", "t1")
	assert.Equal(t, "t1", child.Option("tenant"))
	assert.Equal(t, "t1", child.GetJoin("perms").Option("tenant"))
}

func TestOptions_SharedAcrossTree(t *testing.T) {
	c := New("users")
	child := c.Join("profiles", "p")
	grandchild := child.Join("avatars", "a")

	grandchild.SetOption("k", 1)
	assert.Equal(t, 1, c.Option("k"))
	assert.Equal(t, 1, child.Option("k"))

	assert.Equal(t, 1, c.DelOption("k"))
	assert.Nil(t, grandchild.Option("k"))
	assert.Equal(t, 0, c.Options().Len())
}

func TestOptionAs(t *testing.T) {
	c := New("users").SetOption("assocs", []string{"a"}).SetOption("n", 3)

	assert.Equal(t, []string{"a"}, OptionAs(c, "assocs", []string(nil)))
	assert.Equal(t, 3, OptionAs(c, "n", 0))
	assert.Equal(t, "def", OptionAs(c, "n", "def"), "wrong type falls back")
	assert.Equal(t, 9, OptionAs(c, "missing", 9))
}

type tags struct{ names []string }

func (t *tags) CloneOption() any {
	return &tags{names: append([]string(nil), t.names...)}
}

func TestClone_IdenticalAndIndependent(t *testing.T) {
	c := New("users").As("u").Select("id").Filter("age > ?", 18)
	c.Join("profiles", "p").On(".user_id = :id").In("").Filter("bio LIKE ?", "%go%")
	c.SetOption("list", []string{"a"})
	c.SetOption("tags", &tags{names: []string{"x"}})

	sql, params, err := c.Build()
	require.NoError(t, err)

	cp := c.Clone()
	cpSQL, cpParams, err := cp.Build()
	require.NoError(t, err)
	assert.Equal(t, sql, cpSQL)
	assert.Equal(t, params, cpParams)

	cp.Filter("name = ?", "ada")
	cp.GetJoin("p").Select("bio").Having("COUNT(*) > ?", 1)
	cp.Join("roles", "r")
	cp.SetOption("extra", true)
	OptionAs[[]string](cp, "list", nil)[0] = "changed"
	OptionAs[*tags](cp, "tags", nil).names[0] = "changed"

	after, afterParams, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, sql, after)
	assert.Equal(t, params, afterParams)
	assert.Nil(t, c.Option("extra"))
	assert.Equal(t, []string{"a"}, c.Option("list"))
	assert.Equal(t, "x", OptionAs[*tags](c, "tags", nil).names[0])

	assert.Equal(t, true, cp.GetJoin("p").Option("extra"), "clone tree shares one option set")
}
