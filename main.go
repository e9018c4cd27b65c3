package main

import (
	"os"

	"mvtfilter/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
