package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/rasterize"
)

// lithologyKeywords mark map units favorable for rare-earth systems.
// Matching is case-insensitive over all attribute values.
var lithologyKeywords = []string{
	"carbonatite",
	"alkaline",
	"syenite",
	"ijolite",
	"nepheline",
	"granite pegmatite",
	"ree",
	"monazite",
	"bastnaesite",
}

// MatchesLithology reports whether any attribute value of a geology
// feature mentions a favorable lithology keyword.
func MatchesLithology(props map[string]any) bool {
	fold := cases.Fold()
	parts := make([]string, 0, len(props))
	for _, v := range props {
		parts = append(parts, fmt.Sprint(v))
	}
	text := fold.String(strings.Join(parts, " "))
	for _, k := range lithologyKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// LoadGeologyGeoJSON reads a geology feature collection from a GeoJSON
// file. Geometries are expected in EPSG:4326.
func LoadGeologyGeoJSON(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sources: read geology file %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "sources: parse geology geojson %s", path)
	}
	return &fc, nil
}

// LoadGeologyShapefile reads a geology feature collection from an ESRI
// shapefile, carrying the DBF attributes as feature properties.
func LoadGeologyShapefile(path string) (*geojson.FeatureCollection, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sources: open shapefile %s", path)
	}
	defer r.Close() //nolint:errcheck

	fields := r.Fields()
	fc := &geojson.FeatureCollection{}
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		props := make(map[string]any, len(fields))
		for i, f := range fields {
			props[f.String()] = r.ReadAttribute(n, i)
		}
		g := shpPolygonToGeom(poly)
		if g == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: g, Properties: props})
	}
	return fc, nil
}

func shpPolygonToGeom(p *shp.Polygon) *geom.Polygon {
	if len(p.Points) == 0 {
		return nil
	}
	parts := make([]int, len(p.Parts)+1)
	for i, off := range p.Parts {
		parts[i] = int(off)
	}
	parts[len(p.Parts)] = len(p.Points)

	rings := make([][]geom.Coord, 0, len(p.Parts))
	for i := 0; i < len(parts)-1; i++ {
		ring := make([]geom.Coord, 0, parts[i+1]-parts[i])
		for _, pt := range p.Points[parts[i]:parts[i+1]] {
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		if len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}
	if len(rings) == 0 {
		return nil
	}
	out, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return nil
	}
	return out
}

// RasterizeGeology burns the lithology-matching polygons of the
// collection into a 1/0 mask on the reference grid. Returns nil when no
// feature matches; the hardrock scorer then rescales its weights.
func RasterizeGeology(fc *geojson.FeatureCollection, ref raster.Grid) (*raster.Raster, error) {
	if fc == nil {
		return nil, nil
	}
	fs := model.FeatureSet{CRS: raster.CRSWGS84}
	for _, f := range fc.Features {
		if f.Geometry == nil || !MatchesLithology(f.Properties) {
			continue
		}
		fs.Geoms = append(fs.Geoms, f.Geometry)
	}
	if fs.Empty() {
		zap.L().Debug("sources: no lithology-matching geology features")
		return nil, nil
	}

	mask, err := rasterize.Polygons(fs, ref)
	if err != nil {
		return nil, eris.Wrap(err, "sources: rasterize geology")
	}
	data := make([]float64, len(mask))
	for i, m := range mask {
		if m {
			data[i] = 1
		}
	}
	out := raster.Raster{Grid: ref}.WithData(data)
	return &out, nil
}
