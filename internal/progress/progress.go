// Package progress reports pipeline stage transitions to interested
// sinks.
package progress

import "go.uber.org/zap"

// Stage names, emitted in pipeline order.
const (
	StageFetchImagery    = "fetch_imagery"
	StageFetchDEM        = "fetch_dem"
	StageFetchOSM        = "fetch_osm"
	StageComputeFeatures = "compute_features"
	StageScore           = "score"
	StageExtractTargets  = "extract_targets"
	StageGenerateOutputs = "generate_outputs"
)

// Stages lists every stage in execution order.
var Stages = []string{
	StageFetchImagery,
	StageFetchDEM,
	StageFetchOSM,
	StageComputeFeatures,
	StageScore,
	StageExtractTargets,
	StageGenerateOutputs,
}

// Sink receives a notification as each stage begins.
type Sink interface {
	Stage(runID, stage string)
}

// ZapSink logs stage transitions through the global logger.
type ZapSink struct{}

// Stage implements Sink.
func (ZapSink) Stage(runID, stage string) {
	zap.L().Info("pipeline stage",
		zap.String("run_id", runID),
		zap.String("stage", stage))
}

// Recorder accumulates stages in order, for persistence and tests.
type Recorder struct {
	stages []string
}

// Stage implements Sink.
func (r *Recorder) Stage(_, stage string) {
	r.stages = append(r.stages, stage)
}

// Stages returns the recorded stage names in arrival order.
func (r *Recorder) Stages() []string { return r.stages }

// Multi fans one notification out to several sinks.
type Multi []Sink

// Stage implements Sink.
func (m Multi) Stage(runID, stage string) {
	for _, s := range m {
		s.Stage(runID, stage)
	}
}
