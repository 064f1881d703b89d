package main

import (
	"os"

	"github.com/gridmpc/gridmpc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
