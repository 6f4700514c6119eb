// Command featmock serves feature-scoped mock APIs.
package main

import (
	"os"

	"github.com/hemaweb/featmock/pkg/cli"
)

func main() {
	os.Exit(cli.Main())
}
