package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/pipeline"
)

var (
	batchMode   string
	batchParams string
	batchStart  string
	batchEnd    string
)

var batchCmd = &cobra.Command{
	Use:   "batch <aoi.geojson>...",
	Short: "Run prospectivity scoring for several AOIs concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		mode := model.Mode(batchMode)
		if !mode.Valid() {
			return eris.Errorf("invalid mode %q (coastal or hardrock)", batchMode)
		}
		params, err := loadParams(batchParams)
		if err != nil {
			return err
		}
		tr, err := parseTimeRange(batchStart, batchEnd)
		if err != nil {
			return err
		}

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		runOne := func(ctx context.Context, aoiPath string) (*pipeline.Result, error) {
			aoi, err := loadAOI(aoiPath)
			if err != nil {
				return nil, err
			}
			return p.Run(ctx, pipeline.RunSpec{
				Mode:      mode,
				AOI:       aoi,
				TimeRange: tr,
				Params:    params,
			})
		}
		return processBatch(ctx, args, cfg.Batch.MaxConcurrentRuns, runOne)
	},
}

// batchRunFunc runs the pipeline over one AOI file.
type batchRunFunc func(ctx context.Context, aoiPath string) (*pipeline.Result, error)

// processBatch runs the AOI files concurrently. Individual failures are
// logged and counted; they do not abort the batch.
func processBatch(ctx context.Context, aoiPaths []string, concurrency int, run batchRunFunc) error {
	zap.L().Info("processing batch",
		zap.Int("aois", len(aoiPaths)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, path := range aoiPaths {
		g.Go(func() error {
			log := zap.L().With(zap.String("aoi", path))

			result, err := run(gctx, path)
			if err != nil {
				failed.Add(1)
				log.Error("run failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("run complete",
				zap.String("run_id", result.Run.ID),
				zap.Int("targets", len(result.Targets)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchMode, "mode", "coastal", "deposit model: coastal or hardrock")
	batchCmd.Flags().StringVar(&batchParams, "params", "", "YAML file overriding scoring parameters")
	batchCmd.Flags().StringVar(&batchStart, "start", "", "imagery window start (YYYY-MM-DD)")
	batchCmd.Flags().StringVar(&batchEnd, "end", "", "imagery window end (YYYY-MM-DD)")
	rootCmd.AddCommand(batchCmd)
}
