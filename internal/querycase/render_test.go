package querycase

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func profileCase() *Case {
	c := New("users").As("u").Select("id, name")
	c.Join("profiles", "p").On(".user_id = :id").In("").Select("bio")
	return c
}

func TestRender_JoinWithResultPrefix(t *testing.T) {
	sql, err := profileCase().SQL()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT `u`.id, `u`.name, `p`.`bio` AS `p.bio` FROM `users` AS `u` LEFT JOIN `profiles` AS `p` ON `p`.user_id = `u`.id",
		sql)
}

func TestRender_NestedJoins(t *testing.T) {
	c := New("orders").As("o").Select("id, total")
	user := c.Join("users", "u").On(":user_id = .id").In("user")
	user.Select("name")
	user.Join("addresses", "a").On(".user_id = :id").By(Inner).In("user.address").Select("city")
	c.Filter("total > ?", 100)
	c.OrderBy("id DESC")

	sql, params, err := c.Build()
	require.NoError(t, err)

	assert.Equal(t, []any{100}, params)
	newGoldie(t).Assert(t, "nested_joins", []byte(sql))
}

func TestRender_ClauseOrderAndParams(t *testing.T) {
	c := New("users").As("u").Select("id")
	c.Filter("age >= ?", 18)
	c.GroupBy("id")
	c.Having("COUNT(*) > ?", 2)
	p := c.Join("posts", "p").On(".author_id = :id")
	p.Filter("published = ?", true)
	p.GroupBy("id")
	c.OrderBy("id")

	sql, params, err := c.Build()
	require.NoError(t, err)

	assert.Equal(t, []any{18, true, 2}, params, "where params of the whole tree precede having params")
	newGoldie(t).Assert(t, "clause_order", []byte(sql))
}

func TestRender_NoneChildrenAreSkipped(t *testing.T) {
	c := New("users").Filter("id = ?", 1)
	c.GotJoin("ghost").Filter("x = ?", 2)

	sql, params, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `users`.* FROM `users` WHERE id = ?", sql)
	assert.Equal(t, []any{1}, params)
}

func TestRender_ExplicitAliasRenamed(t *testing.T) {
	c := New("users").As("u")
	c.Join("posts", "p").On(".author_id = :id").In("stats").Select("COUNT(!*) AS n")

	sql, err := c.SQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) AS `stats.n` FROM `users` AS `u` LEFT JOIN `posts` AS `p` ON `p`.author_id = `u`.id",
		sql)
}

func TestString_InlinesParams(t *testing.T) {
	c := New("users").Filter("name = ? AND id IN (?)", "o'neil", []any{1, 2})
	assert.Equal(t, "SELECT `users`.* FROM `users` WHERE name = 'o''neil' AND id IN (1, 2)", c.String())

	assert.Contains(t, New("").String(), "NO_TABLE")
}
