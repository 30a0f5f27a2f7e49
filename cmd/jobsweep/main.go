// The main package for the jobsweep executable.
package main

import (
	"github.com/jobsweep/jobsweep/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
