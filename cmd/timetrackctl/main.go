package main

import (
	"context"
	"fmt"
	"os"

	"timetrack/internal/cli"
	"timetrack/internal/config"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(config.Load())

	cmd := cli.NewCtlCommand(&cli.CtlOptions{Version: version, Logger: logger})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
