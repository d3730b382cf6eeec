// Command ringdown analyses black-hole ring-down signals against Kerr
// quasi-normal mode predictions.
//
// Usage:
//
//	ringdown predict --mass 62 --spin 0.68
//	ringdown table --mass 62
//	ringdown analyze catalogue.yaml --db runs.db
//	ringdown last-run --db runs.db
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-ringdown/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
