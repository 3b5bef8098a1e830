package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/rrn-masker/internal/ocr/tesseract"
)

func newVersionCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and OCR engine information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ocrInfo := tesseract.Probe()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"version":    a.build.Version,
					"build_time": a.build.BuildTime,
					"git_commit": a.build.GitCommit,
					"ocr":        ocrInfo,
				})
			}

			fmt.Fprintf(out, "rrn-masker %s\n", a.build.Version)
			fmt.Fprintf(out, "  Build time: %s\n", a.build.BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", a.build.GitCommit)
			if ocrInfo.Available {
				fmt.Fprintf(out, "  Tesseract:  %s\n", ocrInfo.Version)
			} else {
				fmt.Fprintf(out, "  Tesseract:  unavailable (%s)\n", ocrInfo.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
