package main

import (
	"os"

	testwisecmder "github.com/testwiseco/testwise/cmd/testwise"
)

func main() {
	cmd := testwisecmder.NewTestwiseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
