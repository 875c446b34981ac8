package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/export"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export the stored targets of a run",
	Long:  "Writes the persisted targets of a completed run as GeoJSON, CSV and XLSX into the output directory.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		// Fail early on unknown run ids instead of writing empty files.
		if _, err := st.GetRun(ctx, args[0]); err != nil {
			return eris.Wrap(err, "export")
		}
		targets, err := st.ListTargets(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return eris.Wrapf(err, "create export dir %s", exportDir)
		}
		outputs, err := export.WriteAll(targets, exportDir)
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("run_id", args[0]),
			zap.Int("targets", len(targets)))
		for name, path := range outputs {
			fmt.Printf("%s\t%s\n", name, path)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "directory to write the export files into")
	rootCmd.AddCommand(exportCmd)
}
