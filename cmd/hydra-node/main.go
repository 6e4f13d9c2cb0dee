package main

import (
	"fmt"
	"os"

	"github.com/hydra-head/hydra-node/cmd/hydra-node/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
