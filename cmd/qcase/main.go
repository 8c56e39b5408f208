// Command qcase validates table and model schemas, renders the SQL that an
// untrusted request translates to, fetches nested rows and runs query
// scenarios.
//
// Usage:
//
//	qcase [--format text|json] [--config qcase.yaml] <command>
//
// Commands that need a database (fetch) read database.driver and
// database.dsn from the config or QCASE_DATABASE_* environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qcase/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
