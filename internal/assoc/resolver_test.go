package assoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querycase"
	"github.com/roach88/qcase/internal/testutil"
)

func newBlog(t *testing.T, opts ...Option) (*Resolver, *ir.Schema) {
	t.Helper()
	schema := testutil.BlogSchema()
	return New(schema, testutil.NewBlog(t), opts...), schema
}

func TestPrepare_JoinsToOneAndDefersToMany(t *testing.T) {
	r, schema := newBlog(t)

	c := querycase.New("users").OrderBy(".id")
	plan, err := r.Prepare(schema.Tables["users"], c)
	require.NoError(t, err)

	sql, params, err := plan.Case().Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `users`.*, "+
		"`profile`.`id` AS `profile.id`, `profile`.`user_id` AS `profile.user_id`, `profile`.`bio` AS `profile.bio` "+
		"FROM `users` LEFT JOIN `profiles` AS `profile` ON `users`.`id` = `profile`.`user_id` "+
		"ORDER BY `users`.id", sql)
	assert.Empty(t, params)
	assert.Equal(t, []string{"posts"}, plan.Deferred())
}

func TestPrepare_CallerSelectSuppressesAutoSelect(t *testing.T) {
	r, schema := newBlog(t)

	c := querycase.New("users").Select(".name")
	c.GotJoin("profile").Select(".bio")
	plan, err := r.Prepare(schema.Tables["users"], c)
	require.NoError(t, err)

	sql, err := plan.Case().SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `users`.name, `profile`.`bio` AS `profile.bio` "+
		"FROM `users` LEFT JOIN `profiles` AS `profile` ON `users`.`id` = `profile`.`user_id`", sql)
}

func TestPrepare_BelongsToJoin(t *testing.T) {
	r, schema := newBlog(t)
	posts := schema.Tables["posts"]
	posts.Assocs[0].Join = ir.JoinInner

	plan, err := r.Prepare(posts, querycase.New("posts"))
	require.NoError(t, err)

	sql, err := plan.Case().SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `posts`.*, `author`.`id` AS `author.id`, `author`.`name` AS `author.name` "+
		"FROM `posts` INNER JOIN `users` AS `author` ON `posts`.`user_id` = `author`.`id`", sql)
	assert.Equal(t, []string{"comments", "post_tags"}, plan.Deferred())
}

func TestPrepare_DefaultDescriptor(t *testing.T) {
	r, schema := newBlog(t)
	users := schema.Tables["users"]
	users.Defaults = &ir.Assoc{Name: "@", Select: ".id, .name", OrderBy: ".name DESC", Filter: ".state = 'on'"}

	plan, err := r.Prepare(users, querycase.New("users"))
	require.NoError(t, err)

	sql, err := plan.Case().SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `users`.id, `users`.name, "+
		"`profile`.`id` AS `profile.id`, `profile`.`user_id` AS `profile.user_id`, `profile`.`bio` AS `profile.bio` "+
		"FROM `users` LEFT JOIN `profiles` AS `profile` ON `users`.`id` = `profile`.`user_id` "+
		"WHERE `users`.state = 'on' ORDER BY `users`.name DESC", sql)
}

func TestPrepare_OptionsRestrictDescriptors(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    []string
		joined   bool
		deferred []string
	}{
		{"assocs by name", OptAssocs, []string{"profile"}, true, []string{}},
		{"assocs by table", OptAssocs, []string{"posts"}, false, []string{"posts"}},
		{"types", OptAssocTypes, []string{"HAS_MANY"}, false, []string{"posts"}},
		{"joins", OptAssocJoins, []string{"INNER"}, false, []string{"posts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, schema := newBlog(t)
			c := querycase.New("users").SetOption(tt.key, tt.value)

			plan, err := r.Prepare(schema.Tables["users"], c)
			require.NoError(t, err)
			assert.Equal(t, tt.joined, plan.Case().HasJoin())
			assert.Equal(t, tt.deferred, plan.Deferred())
		})
	}
}

func TestPrepare_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *ir.Assoc)
		want   error
	}{
		{"cross join", func(a *ir.Assoc) { a.Join = ir.JoinCross }, ErrCrossJoin},
		{"unknown join", func(a *ir.Assoc) { a.Join = "SIDEWAYS" }, ErrUnknownJoin},
		{"unknown type", func(a *ir.Assoc) { a.Type = "HAS_SOME" }, ErrUnknownType},
		{"unknown table", func(a *ir.Assoc) { a.TableName = "nowhere" }, ErrNoTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, schema := newBlog(t)
			users := schema.Tables["users"]
			tt.mutate(&users.Assocs[0])

			_, err := r.Prepare(users, querycase.New("users"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, IsConfigError(err))

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "profile", ce.Assoc)
		})
	}
}

func TestPrepare_DeferredNodeLeavesJoin(t *testing.T) {
	r, schema := newBlog(t)

	// a caller pre-registering a to-many node as a join must not get it
	// rendered into the root statement
	c := querycase.New("users").SetOption(OptAssocs, []string{"posts"})
	c.Join("posts", "posts").On(":id = .user_id")

	plan, err := r.Prepare(schema.Tables["users"], c)
	require.NoError(t, err)
	assert.False(t, plan.Case().HasJoin())
}
