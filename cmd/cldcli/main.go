// Command cldcli is the command-line client for a CLD coordination
// service cluster.
package main

import (
	"fmt"
	"os"

	"github.com/cldc-go/cldc/cmd/cldcli/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
