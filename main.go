package main

import (
	"os"

	"github.com/cscan-dev/cscan/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
