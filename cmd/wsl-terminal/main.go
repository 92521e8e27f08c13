// Command wsl-terminal runs the terminal backend, or with --mcp the MCP
// tool server that drives it.
package main

import (
	"os"

	"github.com/GriffinCanCode/wsl-terminal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
