package config

import (
	"github.com/spf13/cobra"

	"github.com/srthknk/biomuseum/internal/app"
)

// Command creates the config command, which prints the effective settings
// with credentials redacted.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Prints defaults merged with config.yaml, .env and environment variables. API keys and passwords are redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ctx.Settings.RedactedYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
