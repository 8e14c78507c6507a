package main

import (
	"fmt"
	"os"

	"postboard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "postboard: %v\n", err)
		os.Exit(1)
	}
}
