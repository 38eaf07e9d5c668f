// Command graphwalker models graphs of nodes, connectors, edges and cliques
// in a SQLite database.
package main

import (
	"os"

	"github.com/AplusKminus/GraphWalker/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
