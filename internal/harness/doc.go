// Package harness runs query scenarios against a schema.
//
// A scenario seeds a fresh database, then runs reads and association writes
// and checks the SQL each read renders and the nested rows it returns.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schemas            # CUE directory, relative to this file
//	id_prefix: c                  # generated keys: c-001, c-002, ...
//	setup:
//	  - CREATE TABLE posts (id TEXT PRIMARY KEY, title TEXT, state TEXT)
//	  - INSERT INTO posts VALUES ('p1', 'first', 'pub')
//	steps:
//	  - name: published
//	    table: posts
//	    request: { state: pub, order-by: id }
//	    expect:
//	      sql: SELECT * FROM `posts` WHERE `state` = ? ORDER BY `id`
//	      params: [pub]
//	      row_count: 1
//	      rows:
//	        - { id: p1, comments: [{ body: nice }] }
//	  - table: posts
//	    write: { id: p1, comments: [{ body: new }] }
//	  - table: posts
//	    delete: [p1]
//
// # Expectations
//
//   - sql: the exact root statement after allow-list translation and joins
//   - params: the root statement's parameters, in order
//   - row_count: the number of top-level rows
//   - rows: subset match, position by position, nested rows included
//   - error: a substring the step's error must contain
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory SQLite database, and keys for
// inserted association rows come from testutil.DeterministicIDs, so output
// is identical across runs and suitable for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/posts.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
