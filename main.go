// Completion: 100% - CLI entry point
package main

import (
	"fmt"
	"os"
)

const versionString = "tempoc 0.1.0"

func main() {
	os.Exit(RunCLI(os.Args[1:]))
}

// fatalf prints a short prefixed diagnostic to stderr, matching the
// "Error: <what>" format, and returns the exit code the driver should use.
func fatalf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return 1
}
