// linedb is a tool for inspecting and maintaining linedb files
package main

import (
	"fmt"
	"os"

	"github.com/kjk/linedb/log"
)

func main() {
	cmd := NewRootCommand()
	err := cmd.Execute()
	log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
