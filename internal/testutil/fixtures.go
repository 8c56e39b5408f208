package testutil

import "github.com/roach88/qcase/internal/ir"

// BlogDDL creates the blog fixture tables.
var BlogDDL = []string{
	"CREATE TABLE users (id TEXT PRIMARY KEY, name TEXT NOT NULL, age INTEGER, state TEXT)",
	"CREATE TABLE profiles (id TEXT PRIMARY KEY, user_id TEXT NOT NULL, bio TEXT)",
	"CREATE TABLE posts (id TEXT PRIMARY KEY, user_id TEXT NOT NULL, title TEXT NOT NULL, state TEXT)",
	"CREATE TABLE comments (id TEXT PRIMARY KEY, post_id TEXT NOT NULL, body TEXT, kind TEXT)",
	"CREATE TABLE tags (id TEXT PRIMARY KEY, name TEXT NOT NULL)",
	"CREATE TABLE post_tags (id TEXT PRIMARY KEY, post_id TEXT NOT NULL, tag_id TEXT NOT NULL)",
}

// BlogSeed fills the blog fixture tables. cid has no posts and bob has no
// profile.
var BlogSeed = []string{
	"INSERT INTO users (id, name, age, state) VALUES ('u1', 'ann', 30, 'on'), ('u2', 'bob', 17, 'on'), ('u3', 'cid', 45, 'off')",
	"INSERT INTO profiles (id, user_id, bio) VALUES ('pr1', 'u1', 'writes go'), ('pr3', 'u3', 'reads sql')",
	"INSERT INTO posts (id, user_id, title, state) VALUES ('p1', 'u1', 'first', 'pub'), ('p2', 'u1', 'second', 'draft'), ('p3', 'u2', 'hello', 'pub')",
	"INSERT INTO comments (id, post_id, body, kind) VALUES ('c1', 'p1', 'nice', 'note'), ('c2', 'p1', 'meh', 'note'), ('c3', 'p3', 'yo', 'note')",
	"INSERT INTO tags (id, name) VALUES ('t1', 'go'), ('t2', 'sql')",
	"INSERT INTO post_tags (id, post_id, tag_id) VALUES ('pt1', 'p1', 't1'), ('pt2', 'p1', 't2'), ('pt3', 'p3', 't2')",
}

func columns(names ...string) []ir.Column {
	out := make([]ir.Column, len(names))
	for i, n := range names {
		out[i] = ir.Column{Name: n}
	}
	return out
}

// BlogSchema returns the metadata matching BlogDDL:
//
//	users    HAS_ONE profile (LEFT join), HAS_MANY posts
//	posts    BELONGS_TO author, HAS_MANY comments, HAS_MORE post_tags
//	post_tags BELONGS_TO tag
//
// Every call returns a fresh schema, so tests may modify it.
func BlogSchema() *ir.Schema {
	s := ir.NewSchema()
	s.Tables["users"] = &ir.Table{
		Name:       "users",
		PrimaryKey: "id",
		Columns:    columns("id", "name", "age", "state"),
		Assocs: []ir.Assoc{
			{Type: ir.HasOne, Join: ir.JoinLeft, Name: "profile", TableName: "profiles", ForeignKey: "user_id"},
			{Type: ir.HasMany, Name: "posts", ForeignKey: "user_id", OrderBy: ".id", Unique: []string{"title"}},
		},
	}
	s.Tables["profiles"] = &ir.Table{
		Name:       "profiles",
		PrimaryKey: "id",
		Columns:    columns("id", "user_id", "bio"),
	}
	s.Tables["posts"] = &ir.Table{
		Name:       "posts",
		PrimaryKey: "id",
		Columns:    columns("id", "user_id", "title", "state"),
		Assocs: []ir.Assoc{
			{Type: ir.BelongsTo, Name: "author", TableName: "users", ForeignKey: "user_id", Select: ".id, .name"},
			{Type: ir.HasMany, Name: "comments", ForeignKey: "post_id", OrderBy: ".id"},
			{
				Type: ir.HasMore, Name: "post_tags", ForeignKey: "post_id", OrderBy: ".id",
				Assocs: []ir.Assoc{
					{Type: ir.BelongsTo, Name: "tag", TableName: "tags", ForeignKey: "tag_id"},
				},
			},
		},
		StateField: "state",
		States:     map[string]string{"default": "draft"},
	}
	s.Tables["comments"] = &ir.Table{
		Name:       "comments",
		PrimaryKey: "id",
		Columns:    columns("id", "post_id", "body", "kind"),
	}
	s.Tables["tags"] = &ir.Table{
		Name:       "tags",
		PrimaryKey: "id",
		Columns:    columns("id", "name"),
	}
	s.Tables["post_tags"] = &ir.Table{
		Name:       "post_tags",
		PrimaryKey: "id",
		Columns:    columns("id", "post_id", "tag_id"),
	}
	s.Models["user"] = &ir.Model{
		Name:     "user",
		Table:    "users",
		Listable: []string{"id", "name", "age"},
		Sortable: []string{"name", "age"},
		Filtable: []string{"id", "name", "age", "state"},
		Findable: []string{"name"},
	}
	return s
}
