package main

import (
	"fmt"
	"os"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
