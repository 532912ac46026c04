// Command datagrind records and analyzes memory-access traces produced
// by an Instrumentation Host (§4.16).
package main

import (
	"os"

	"github.com/bmerry/datagrind/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
