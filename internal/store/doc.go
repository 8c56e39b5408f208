// Package store implements ir.Link on database/sql for SQLite and MySQL.
//
// Statements arrive with `?` placeholders. Before execution a slice bound to
// a single placeholder is expanded into a placeholder list (NULL when empty),
// and Fetch/Query bounds are rendered as LIMIT/OFFSET. Write statements are
// built with squirrel through internal/querysql.
//
// # Database Configuration
//
// SQLite connections run with:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Errors
//
// Every driver failure is returned as *ir.ExecError carrying the operation
// and the statement text as it was sent. There are no retries and no
// implicit transactions.
package store
