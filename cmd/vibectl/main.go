// Command vibectl is the terminal client for the UT Vibe API.
package main

import (
	"os"

	"utvibe/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
