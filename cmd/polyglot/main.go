// Command polyglot serves the translation API and runs its maintenance
// tasks.
//
//	polyglot serve
//	polyglot clean-orphaned --dry-run
//	polyglot stats --model post --locale tr
//
//	@title			Polyglot Translation API
//	@version		1.0
//	@description	Per-field, per-locale translation overrides with single-hop fallback.
//	@BasePath		/api/v1
package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-polyglot/internal/app"
	"github.com/tbourn/go-polyglot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(app.Build).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "polyglot:", err)
		os.Exit(1)
	}
}
