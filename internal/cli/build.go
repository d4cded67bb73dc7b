package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/pipeline"
)

var (
	buildManifest   string
	buildOutput     string
	buildCacheDir   string
	buildDryRun     bool
	buildNoManifest bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the master PDF and rewrite the manifest's page map",
	Long: `Build fetches every section PDF named in the manifest, assembles the master
PDF and replaces the generated block in the manifest. With --dry-run nothing
is written and the manifest change is printed as a unified diff.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if buildManifest != "" {
			cfg.ManifestPath = buildManifest
		}
		if buildOutput != "" {
			cfg.OutputPath = buildOutput
		}
		if buildCacheDir != "" {
			cfg.CacheDir = buildCacheDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		opts := pipeline.OptionsFromConfig(cfg)
		opts.DryRun = buildDryRun
		opts.NoManifest = buildNoManifest

		res, err := pipeline.NewBuilder(opts, log).Run(cmd.Context())
		return report(cmd.OutOrStdout(), res, err, buildDryRun)
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildManifest, "manifest", "m", "", "Manifest to read (default $MANIFEST_PATH or README.md)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Master PDF path (default $OUTPUT_PATH or pdfs/master.pdf)")
	buildCmd.Flags().StringVar(&buildCacheDir, "cache-dir", "", "Download cache directory (default $CACHE_DIR or .cache)")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Build in memory and print the manifest diff without writing")
	buildCmd.Flags().BoolVar(&buildNoManifest, "no-manifest", false, "Write the master PDF but leave the manifest untouched")

	rootCmd.AddCommand(buildCmd)
}

// report prints the outcome of a build. A manifest without sections is not
// an error.
func report(w io.Writer, res *pipeline.Result, err error, dryRun bool) error {
	if errors.Is(err, diag.ErrNoItems) {
		fmt.Fprintln(w, dimStyle.Render("No sections with a PDF download link; nothing written."))
		return nil
	}
	if res != nil && len(res.Diagnostics) > 0 && err != nil {
		FormatDiagnostics(w, res.Diagnostics)
	}
	if err != nil {
		return err
	}

	FormatSummary(w, res)
	if dryRun {
		d := unifiedDiff(cfg.ManifestPath, res.OldManifest, res.NewManifest)
		if d == "" {
			fmt.Fprintln(w, dimStyle.Render("Manifest unchanged."))
		} else {
			fmt.Fprint(w, d)
		}
	}
	return nil
}
