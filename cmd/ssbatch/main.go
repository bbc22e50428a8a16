package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/ssbatch/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if cmd.ShouldPrint(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cmd.ExitCode(err))
}
