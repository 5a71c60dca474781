// Command mathgraph loads, animates, syncs and saves reactive dataflow
// graphs.
package main

import (
	"os"

	"github.com/roach88/mathgraph/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
