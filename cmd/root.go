package cmd

import (
	"github.com/spf13/cobra"

	"github.com/srthknk/biomuseum/cmd/config"
	"github.com/srthknk/biomuseum/cmd/images"
	"github.com/srthknk/biomuseum/cmd/serve"
	"github.com/srthknk/biomuseum/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "biomuseum",
		Short:         "BioMuseum organism image service",
		Long:          "Finds photographs of organisms across image search providers and ranks them with an AI vision classifier.",
		Version:       ctx.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, ctx)

	rootCmd.AddCommand(
		images.Command(ctx),
		serve.Command(ctx),
		config.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return ctx.Init()
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		ctx.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/biomuseum, /etc/biomuseum)")
	rootCmd.PersistentFlags().BoolVarP(&ctx.Debug, "debug", "d", false, "Enable debug output")
}
