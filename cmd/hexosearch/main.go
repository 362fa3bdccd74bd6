// Package main provides the entry point for the hexosearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/hexosearch/cmd/hexosearch/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
