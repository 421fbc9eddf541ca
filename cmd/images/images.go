package images

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srthknk/biomuseum/internal/app"
	"github.com/srthknk/biomuseum/internal/pipeline"
)

// Command creates the images command, which runs one verified image search
// and prints the response as JSON.
func Command(ctx *app.Context) *cobra.Command {
	var (
		scientificName string
		count          int
		compact        bool
	)

	cmd := &cobra.Command{
		Use:   "images <organism name>",
		Short: "Find validated images of an organism",
		Long: "Queries the configured image providers for the organism, validates each candidate " +
			"with the vision classifier and prints the ranked result as JSON.",
		Example: `  biomuseum images "Bengal Tiger" --scientific-name "Panthera tigris tigris" --count 3`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(ctx.Settings, nil, ctx.Logger.Module("app"))
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Orchestrator.Search(cmd.Context(), pipeline.Request{
				OrganismName:   strings.Join(args, " "),
				ScientificName: scientificName,
				Count:          count,
			})
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), resp, !compact); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("image search failed: %s", resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scientificName, "scientific-name", "s", "", "Scientific (binomial) name of the organism")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of images to return (default from pipeline.default_count)")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on a single line")

	return cmd
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
