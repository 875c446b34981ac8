// Package sources provides the external data inputs of a run: optical
// imagery, terrain, infrastructure lines and geology. Every source has a
// deterministic synthetic implementation so the pipeline runs offline.
package sources

import (
	"context"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/spectral"
)

// ErrNoImagery reports that no imagery covers the AOI and time range.
// It is fatal to the run.
var ErrNoImagery = eris.New("sources: no imagery found for AOI and time range")

// ErrNoTerrain reports that no elevation data covers the AOI. Callers
// may degrade to a flat DEM.
var ErrNoTerrain = eris.New("sources: no elevation data found for AOI")

// ImagerySource produces a co-registered multi-band composite over the
// AOI. The composite's grid becomes the reference grid of the run.
type ImagerySource interface {
	FetchComposite(ctx context.Context, aoi *geom.Polygon, tr model.TimeRange) (*spectral.Composite, error)
}

// TerrainSource produces an elevation raster on the reference grid.
type TerrainSource interface {
	FetchDEM(ctx context.Context, ref raster.Grid) (raster.Raster, error)
}

// InfrastructureLines are the vector line sets a run measures
// proximity against. Any of the sets may be empty.
type InfrastructureLines struct {
	Roads  model.FeatureSet
	Rivers model.FeatureSet
	Coast  model.FeatureSet
}

// InfrastructureSource fetches line features intersecting the bounds
// (minLon, minLat, maxLon, maxLat). Implementations degrade to empty
// sets rather than failing the run.
type InfrastructureSource interface {
	FetchLines(ctx context.Context, minLon, minLat, maxLon, maxLat float64) (InfrastructureLines, error)
}
