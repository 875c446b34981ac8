package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/pipeline"
)

var (
	runAOI     string
	runMode    string
	runID      string
	runParams  string
	runGeology string
	runStart   string
	runEnd     string
)

// runSummary is the JSON document printed after a successful run.
type runSummary struct {
	Run       *model.Run         `json:"run"`
	Threshold float64            `json:"threshold"`
	Weights   map[string]float64 `json:"weights"`
	OutputDir string             `json:"output_dir"`
	Outputs   map[string]string  `json:"outputs"`
	Targets   []model.Target     `json:"targets"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run prospectivity scoring for a single AOI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		spec, err := buildRunSpec()
		if err != nil {
			return err
		}

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx, spec)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", result.Run.ID),
			zap.Int("targets", len(result.Targets)),
			zap.Float64("threshold", result.Threshold),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runSummary{
			Run:       result.Run,
			Threshold: result.Threshold,
			Weights:   result.Metadata.Weights,
			OutputDir: result.OutputDir,
			Outputs:   result.Outputs,
			Targets:   result.Targets,
		})
	},
}

// buildRunSpec assembles a RunSpec from the run command flags.
func buildRunSpec() (pipeline.RunSpec, error) {
	mode := model.Mode(runMode)
	if !mode.Valid() {
		return pipeline.RunSpec{}, eris.Errorf("invalid mode %q (coastal or hardrock)", runMode)
	}

	aoi, err := loadAOI(runAOI)
	if err != nil {
		return pipeline.RunSpec{}, err
	}

	params, err := loadParams(runParams)
	if err != nil {
		return pipeline.RunSpec{}, err
	}

	tr, err := parseTimeRange(runStart, runEnd)
	if err != nil {
		return pipeline.RunSpec{}, err
	}

	var geology *geojson.FeatureCollection
	if runGeology != "" {
		if mode != model.ModeHardrock {
			return pipeline.RunSpec{}, eris.New("--geology applies to hardrock mode only")
		}
		geology, err = loadGeology(runGeology)
		if err != nil {
			return pipeline.RunSpec{}, err
		}
	}

	return pipeline.RunSpec{
		RunID:     runID,
		Mode:      mode,
		AOI:       aoi,
		TimeRange: tr,
		Params:    params,
		Geology:   geology,
	}, nil
}

func init() {
	runCmd.Flags().StringVar(&runAOI, "aoi", "", "AOI polygon GeoJSON file (required)")
	runCmd.Flags().StringVar(&runMode, "mode", "coastal", "deposit model: coastal or hardrock")
	runCmd.Flags().StringVar(&runID, "run-id", "", "run identifier (generated when empty)")
	runCmd.Flags().StringVar(&runParams, "params", "", "YAML file overriding scoring parameters")
	runCmd.Flags().StringVar(&runGeology, "geology", "", "geology layer (GeoJSON or shapefile), hardrock only")
	runCmd.Flags().StringVar(&runStart, "start", "", "imagery window start (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runEnd, "end", "", "imagery window end (YYYY-MM-DD)")
	_ = runCmd.MarkFlagRequired("aoi")
	rootCmd.AddCommand(runCmd)
}
