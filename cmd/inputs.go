package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/pipeline"
	"github.com/sells-group/atlas-cli/internal/sources"
)

// loadAOI reads an area of interest polygon from a GeoJSON file. The
// file may hold a bare geometry, a Feature or a FeatureCollection whose
// first feature is used.
func loadAOI(path string) (*geom.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read AOI %s", path)
	}
	return parseAOI(data)
}

func parseAOI(data []byte) (*geom.Polygon, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err == nil {
		return asPolygon(g)
	}

	var feature geojson.Feature
	if err := feature.UnmarshalJSON(data); err == nil && feature.Geometry != nil {
		return asPolygon(feature.Geometry)
	}

	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err == nil && len(fc.Features) > 0 {
		return asPolygon(fc.Features[0].Geometry)
	}

	return nil, eris.New("AOI file holds no polygon geometry")
}

func asPolygon(g geom.T) (*geom.Polygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return t, nil
	case *geom.MultiPolygon:
		if t.NumPolygons() > 0 {
			return t.Polygon(0), nil
		}
	}
	return nil, eris.Errorf("AOI geometry is %T, want polygon", g)
}

// loadParams reads run parameters from a YAML file, or returns the
// defaults when path is empty.
func loadParams(path string) (pipeline.Params, error) {
	params := pipeline.DefaultParams()
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Params{}, eris.Wrapf(err, "read params %s", path)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return pipeline.Params{}, eris.Wrapf(err, "parse params %s", path)
	}
	return params, nil
}

// loadGeology reads a geology layer from GeoJSON or a shapefile, chosen
// by extension.
func loadGeology(path string) (*geojson.FeatureCollection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return sources.LoadGeologyShapefile(path)
	case ".geojson", ".json":
		return sources.LoadGeologyGeoJSON(path)
	default:
		return nil, eris.Errorf("unsupported geology format: %s", path)
	}
}

// parseTimeRange builds the imagery search window from the --start and
// --end flags (YYYY-MM-DD). Empty flags default to the trailing year.
func parseTimeRange(start, end string) (model.TimeRange, error) {
	tr := model.DefaultTimeRange(time.Now().UTC())
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return model.TimeRange{}, eris.Wrapf(err, "parse start date %q", start)
		}
		tr.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return model.TimeRange{}, eris.Wrapf(err, "parse end date %q", end)
		}
		tr.End = t
	}
	if !tr.End.After(tr.Start) {
		return model.TimeRange{}, eris.New("time range end must be after start")
	}
	return tr, nil
}
