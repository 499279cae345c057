// Command wgen generates a synthetic word corpus for wdedup runs.
package main

import (
	"fmt"
	"os"

	"github.com/jaffee/commandeer"

	"github.com/wordtools/wdedup/wordgen"
)

func main() {
	if err := commandeer.Run(wordgen.NewMain()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
