package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	"github.com/Aman-CERP/corpusrag/internal/store"
	"github.com/Aman-CERP/corpusrag/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var (
		format  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index availability and manifest",
		Long: `Report whether the index exists, load it to count chunks and dimensions,
and summarize the manifest of the build that produced it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q: use text or json", format)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			info, err := collectStatus(cfg)
			if err != nil {
				return err
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
			if format == "json" {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

// collectStatus inspects the index and manifest named by cfg. A load
// failure is reported in the result rather than returned.
func collectStatus(cfg *config.Config) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		IndexPath:    cfg.Index.Path,
		ManifestPath: cfg.Index.ManifestPath,
		QueryModel:   embed.ModelFor(cfg),
	}

	if st, err := os.Stat(cfg.Index.Path); err == nil && !st.IsDir() {
		info.Available = true
		info.IndexSize = st.Size()
		info.ModTime = st.ModTime()
	}

	if info.Available {
		index, err := openIndex(cfg)
		if err != nil {
			return info, err
		}
		if err := index.Load(); err != nil {
			info.LoadError = err.Error()
		} else {
			info.Loaded = true
			info.Chunks = index.Len()
			info.Dimensions = index.Dimensions()
		}
	}

	if m, err := store.ReadManifest(cfg.Index.ManifestPath); err == nil {
		info.Model = m.Model
		info.ChunkSizeWords = m.ChunkSizeWords
		info.ChunkOverlapWords = m.ChunkOverlapWords
		info.TotalChunks = m.TotalChunks
		info.Sources = len(m.Sources)
	}
	return info, nil
}
