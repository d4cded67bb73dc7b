package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/cobra"

	"github.com/dgallion1/binder/internal/manifest"
	"github.com/dgallion1/binder/internal/numbering"
)

var verifyManifest string

var verifyCmd = &cobra.Command{
	Use:   "verify [master.pdf]",
	Short: "Validate the master PDF against the page map in the manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.OutputPath
		if len(args) == 1 {
			path = args[0]
		}
		mpath := cfg.ManifestPath
		if verifyManifest != "" {
			mpath = verifyManifest
		}
		return verify(cmd.OutOrStdout(), path, mpath)
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyManifest, "manifest", "m", "", "Manifest holding the page map (default $MANIFEST_PATH)")
	rootCmd.AddCommand(verifyCmd)
}

// verify checks that the artifact parses and that its length and the
// recorded page map agree.
func verify(w io.Writer, path, manifestPath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("%s is not a valid PDF: %w", path, err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}

	md, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	entries, ok := manifest.ReadPageMap(string(md))
	if !ok {
		return errors.New("manifest has no generated page map")
	}
	if err := checkPageMap(entries, pages); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s: %d pages, %d sections match the manifest\n",
		successStyle.Render("ok"), path, pages, len(entries))
	return nil
}

// checkPageMap requires contiguous body ranges under one constant offset
// that end on the artifact's last page.
func checkPageMap(entries []numbering.PageMap, pages int) error {
	if len(entries) == 0 {
		return errors.New("page map is empty")
	}
	offset := entries[0].StartAbs - entries[0].StartBody
	if entries[0].StartBody != 1 || offset < 1 {
		return fmt.Errorf("section %q: expected body page 1 after at least one index page", entries[0].Title)
	}
	for i, e := range entries {
		if e.StartAbs-e.StartBody != offset {
			return fmt.Errorf("section %q: offset %d, expected %d", e.Title, e.StartAbs-e.StartBody, offset)
		}
		if i > 0 && e.StartBody != entries[i-1].EndBody+1 {
			return fmt.Errorf("section %q: starts at body page %d, expected %d", e.Title, e.StartBody, entries[i-1].EndBody+1)
		}
	}
	if last := entries[len(entries)-1].EndAbs; last != pages {
		return fmt.Errorf("page map ends at page %d, document has %d", last, pages)
	}
	return nil
}
