package main

import (
	"fmt"
	"os"

	"github.com/srthknk/biomuseum/cmd"
	"github.com/srthknk/biomuseum/internal/app"
	"github.com/srthknk/biomuseum/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	ctx := app.NewContext(buildinfo.NewContext(version, buildDate))

	rootCmd := cmd.RootCommand(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Close()
		os.Exit(1)
	}
}
