package main

import (
	"os"

	"github.com/afetops/coordcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
