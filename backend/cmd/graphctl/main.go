// Command graphctl lays out, renders and inspects conversation graphs
// without running the HTTP server.
package main

import (
	"os"

	"kgraph-atlas/backend/pkg/logger"
)

func main() {
	if err := logger.Init("production", "warn"); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
