// Command patternlab mines trade outcomes for winning patterns and serves
// the synthesized strategies over HTTP.
package main

import (
	"os"

	"trade-pattern-lab/cmd/patternlab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
