package main

import (
	"os"

	"github.com/itish2003/pdfrag/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
