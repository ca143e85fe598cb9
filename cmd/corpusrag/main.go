// Package main provides the entry point for the corpusrag CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/corpusrag/cmd/corpusrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
