package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/quatton/podium/cmd/podium/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "podium crashed: %v\n", r)
			if os.Getenv("PODIUM_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
