// Package pipeline orchestrates a full prospectivity run: data
// acquisition, feature derivation, scoring, target extraction and
// output generation.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/distance"
	"github.com/sells-group/atlas-cli/internal/export"
	"github.com/sells-group/atlas-cli/internal/lineament"
	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/progress"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/scorer"
	"github.com/sells-group/atlas-cli/internal/sources"
	"github.com/sells-group/atlas-cli/internal/spectral"
	"github.com/sells-group/atlas-cli/internal/store"
	"github.com/sells-group/atlas-cli/internal/targets"
)

// Params bundles the tunable parameters of a run. Zero values are
// replaced by the calibrated defaults.
type Params struct {
	Coastal  model.CoastalParams  `yaml:"coastal" mapstructure:"coastal"`
	Hardrock model.HardrockParams `yaml:"hardrock" mapstructure:"hardrock"`
	Extract  model.ExtractParams  `yaml:"extract" mapstructure:"extract"`
}

// DefaultParams returns the calibrated defaults for both deposit models.
func DefaultParams() Params {
	return Params{
		Coastal:  model.DefaultCoastalParams(),
		Hardrock: model.DefaultHardrockParams(),
		Extract:  model.DefaultExtractParams(),
	}
}

// RunSpec describes one requested run.
type RunSpec struct {
	RunID     string
	Mode      model.Mode
	AOI       *geom.Polygon
	TimeRange model.TimeRange
	Params    Params
	Geology   *geojson.FeatureCollection
}

// Result is the outcome of a completed run.
type Result struct {
	Run       *model.Run
	Targets   []model.Target
	Metadata  scorer.Metadata
	Threshold float64
	OutputDir string
	Outputs   map[string]string
}

// Pipeline wires the data sources, store and progress sink of a run.
type Pipeline struct {
	store   store.Store
	imagery sources.ImagerySource
	terrain sources.TerrainSource
	infra   sources.InfrastructureSource
	sink    progress.Sink
	workDir string
}

// New creates a Pipeline. A nil sink disables progress reporting.
func New(
	st store.Store,
	imagery sources.ImagerySource,
	terrain sources.TerrainSource,
	infra sources.InfrastructureSource,
	sink progress.Sink,
	workDir string,
) *Pipeline {
	if sink == nil {
		sink = progress.Multi{}
	}
	return &Pipeline{
		store:   st,
		imagery: imagery,
		terrain: terrain,
		infra:   infra,
		sink:    sink,
		workDir: workDir,
	}
}

// Run executes a full prospectivity run. A fatal error marks the run
// failed in the store; there is no partial success.
func (p *Pipeline) Run(ctx context.Context, spec RunSpec) (*Result, error) {
	if !spec.Mode.Valid() {
		return nil, eris.Errorf("pipeline: unknown mode %q", spec.Mode)
	}
	if spec.AOI == nil || len(spec.AOI.FlatCoords()) == 0 {
		return nil, eris.New("pipeline: empty AOI")
	}

	run, err := p.store.CreateRun(ctx, spec.RunID, spec.Mode)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("mode", string(spec.Mode)))
	log.Info("pipeline: starting run")

	if err := p.store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		log.Warn("pipeline: failed to mark run running", zap.Error(err))
	}

	result, err := p.execute(ctx, run.ID, spec, log)
	if err != nil {
		log.Error("pipeline: run failed", zap.Error(err))
		if failErr := p.store.FailRun(ctx, run.ID, err); failErr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := p.store.SaveTargets(ctx, run.ID, result.Targets); err != nil {
		_ = p.store.FailRun(ctx, run.ID, err)
		return nil, eris.Wrap(err, "pipeline: save targets")
	}
	if err := p.store.CompleteRun(ctx, run.ID); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}

	final, err := p.store.GetRun(ctx, run.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reload run")
	}
	result.Run = final
	log.Info("pipeline: run complete", zap.Int("targets", len(result.Targets)))
	return result, nil
}

// stage announces a stage to the sink and records it on the run.
func (p *Pipeline) stage(ctx context.Context, runID, name string, log *zap.Logger) {
	p.sink.Stage(runID, name)
	if err := p.store.AppendRunStage(ctx, runID, name); err != nil {
		log.Warn("pipeline: failed to record stage", zap.String("stage", name), zap.Error(err))
	}
}

func (p *Pipeline) execute(ctx context.Context, runID string, spec RunSpec, log *zap.Logger) (*Result, error) {
	params := spec.Params.withDefaults()

	runDir := filepath.Join(p.workDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create run dir %s", runDir)
	}

	// Acquisition.
	p.stage(ctx, runID, progress.StageFetchImagery, log)
	composite, err := p.imagery.FetchComposite(ctx, spec.AOI, spec.TimeRange)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch imagery")
	}
	grid := composite.Grid

	p.stage(ctx, runID, progress.StageFetchDEM, log)
	dem, err := p.terrain.FetchDEM(ctx, grid)
	if err != nil {
		log.Warn("pipeline: no terrain data, using flat DEM", zap.Error(err))
		dem = raster.NewConst(grid, 0)
	}

	p.stage(ctx, runID, progress.StageFetchOSM, log)
	minX, minY, maxX, maxY := grid.Bounds()
	lines, err := p.infra.FetchLines(ctx, minX, minY, maxX, maxY)
	if err != nil {
		log.Warn("pipeline: infrastructure fetch failed, proceeding without lines", zap.Error(err))
		lines = sources.InfrastructureLines{}
	}

	// Feature derivation.
	p.stage(ctx, runID, progress.StageComputeFeatures, log)
	indices, err := spectral.ComputeIndices(composite)
	if err != nil {
		return nil, err
	}
	slope := raster.Slope(dem)
	hillshade := raster.Hillshade(dem, raster.DefaultAzimuthDeg, raster.DefaultAltitudeDeg)

	distCoast, err := distance.ToLines(lines.Coast, grid)
	if err != nil {
		return nil, err
	}
	distRiver, err := distance.ToLines(lines.Rivers, grid)
	if err != nil {
		return nil, err
	}

	layers := targets.Layers{
		targets.LayerNDVI:      indices.NDVI,
		targets.LayerNDWI:      indices.NDWI,
		targets.LayerSlope:     slope,
		targets.LayerDistCoast: distCoast,
		targets.LayerDistRiver: distRiver,
	}
	staged := map[string]raster.Raster{
		"ndvi":       indices.NDVI,
		"ndwi":       indices.NDWI,
		"bsi":        indices.BSI,
		"dem":        dem,
		"slope":      slope,
		"hillshade":  hillshade,
		"dist_coast": distCoast,
		"dist_river": distRiver,
	}

	var lineaments raster.Raster
	var geologyMask *raster.Raster
	if spec.Mode == model.ModeHardrock {
		lineaments = lineament.Density(hillshade, lineament.DefaultConfig())
		layers[targets.LayerLineaments] = lineaments
		staged["lineaments"] = lineaments

		if spec.Geology != nil {
			geologyMask, err = sources.RasterizeGeology(spec.Geology, grid)
			if err != nil {
				return nil, err
			}
			if geologyMask != nil {
				layers[targets.LayerGeology] = *geologyMask
				staged["geology_mask"] = *geologyMask
			}
		}
	} else {
		layers[targets.LayerBSI] = indices.BSI
	}

	// Scoring.
	p.stage(ctx, runID, progress.StageScore, log)
	var score raster.Raster
	var meta scorer.Metadata
	switch spec.Mode {
	case model.ModeCoastal:
		score, meta, err = scorer.Coastal(scorer.CoastalInputs{
			NDVI:       indices.NDVI,
			NDWI:       indices.NDWI,
			BSI:        indices.BSI,
			Slope:      slope,
			DistCoastM: distCoast,
			DistRiverM: distRiver,
		}, params.Coastal)
	case model.ModeHardrock:
		score, meta, err = scorer.Hardrock(scorer.HardrockInputs{
			NDVI:        indices.NDVI,
			NDWI:        indices.NDWI,
			Slope:       slope,
			Lineaments:  lineaments,
			GeologyMask: geologyMask,
		}, params.Hardrock)
	}
	if err != nil {
		return nil, err
	}
	staged["score"] = score

	for name, r := range staged {
		if err := raster.WriteFile(r, filepath.Join(runDir, name+".ras")); err != nil {
			return nil, err
		}
	}

	// Extraction.
	p.stage(ctx, runID, progress.StageExtractTargets, log)
	threshold := targets.ResolveThreshold(score, params.Extract)
	tgts, err := targets.Extract(score, threshold, params.Extract.MinAreaKM2,
		spec.Mode, layers, meta.Thresholds, lines.Roads, lines.Rivers)
	if err != nil {
		return nil, err
	}
	for i := range tgts {
		tgts[i].RunID = runID
	}

	// Outputs.
	p.stage(ctx, runID, progress.StageGenerateOutputs, log)
	outputs, err := export.WriteAll(tgts, runDir)
	if err != nil {
		return nil, err
	}

	return &Result{
		Targets:   tgts,
		Metadata:  meta,
		Threshold: threshold,
		OutputDir: runDir,
		Outputs:   outputs,
	}, nil
}

// withDefaults fills zero-valued parameter groups with the defaults.
func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.Coastal == (model.CoastalParams{}) {
		p.Coastal = def.Coastal
	}
	if p.Hardrock == (model.HardrockParams{}) {
		p.Hardrock = def.Hardrock
	}
	if p.Extract == (model.ExtractParams{}) {
		p.Extract = def.Extract
	}
	return p
}
