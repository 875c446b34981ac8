// Package model defines the run, parameter and target records shared
// across the prospectivity pipeline.
package model

import (
	"time"

	geom "github.com/twpayne/go-geom"
)

// Mode selects the deposit model a run scores against.
type Mode string

const (
	ModeCoastal  Mode = "coastal"
	ModeHardrock Mode = "hardrock"
)

// Valid reports whether the mode is one of the supported deposit models.
func (m Mode) Valid() bool { return m == ModeCoastal || m == ModeHardrock }

// RunStatus represents the current state of a prospectivity run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single prospectivity run over one AOI.
type Run struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Status    RunStatus `json:"status"`
	Stages    []string  `json:"stages,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeatureSet is a collection of geometries sharing a CRS, possibly empty.
type FeatureSet struct {
	CRS   string
	Geoms []geom.T
}

// Empty reports whether the set carries no usable geometry.
func (fs FeatureSet) Empty() bool {
	for _, g := range fs.Geoms {
		if g != nil && len(g.FlatCoords()) > 0 {
			return false
		}
	}
	return true
}

// Target is one candidate polygon emitted by target extraction. Targets
// are produced once per run and never mutated afterwards.
type Target struct {
	ID               string             `json:"id"`
	RunID            string             `json:"run_id,omitempty"`
	Geometry         *geom.Polygon      `json:"-"`
	AreaKM2          float64            `json:"area_km2"`
	CentroidLon      float64            `json:"centroid_lon"`
	CentroidLat      float64            `json:"centroid_lat"`
	MeanScore        float64            `json:"mean_score"`
	MaxScore         float64            `json:"max_score"`
	DistanceToRoadM  *float64           `json:"distance_to_road_m"`
	DistanceToRiverM *float64           `json:"distance_to_river_m"`
	Evidence         map[string]float64 `json:"evidence"`
	EvidenceSummary  []string           `json:"evidence_summary"`
}

// TimeRange bounds the imagery search window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DefaultTimeRange returns the trailing year ending at now.
func DefaultTimeRange(now time.Time) TimeRange {
	return TimeRange{Start: now.AddDate(-1, 0, 0), End: now}
}
