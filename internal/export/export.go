// Package export writes ranked targets to the interchange formats the
// run directory publishes: GeoJSON for GIS tools, CSV for spreadsheets
// and XLSX for report handoff.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/atlas-cli/internal/model"
)

// Output file names within a run directory.
const (
	FileGeoJSON = "targets.geojson"
	FileCSV     = "targets.csv"
	FileXLSX    = "targets.xlsx"
)

var csvHeader = []string{
	"id", "centroid_lat", "centroid_lon", "area_km2", "mean_score", "max_score",
	"distance_to_road_m", "distance_to_river_m", "evidence_summary",
}

// GeoJSON renders the targets as a FeatureCollection. Geometry is the
// target polygon; scores and distances ride along as properties.
func GeoJSON(targets []model.Target) ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(targets))}
	for _, t := range targets {
		props := map[string]any{
			"id":                  t.ID,
			"area_km2":            t.AreaKM2,
			"mean_score":          t.MeanScore,
			"max_score":           t.MaxScore,
			"distance_to_road_m":  nilable(t.DistanceToRoadM),
			"distance_to_river_m": nilable(t.DistanceToRiverM),
			"evidence_summary":    t.EvidenceSummary,
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         t.ID,
			Geometry:   t.Geometry,
			Properties: props,
		})
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal feature collection")
	}
	return data, nil
}

// WriteGeoJSON writes the targets FeatureCollection to path.
func WriteGeoJSON(targets []model.Target, path string) error {
	data, err := GeoJSON(targets)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// WriteCSV writes one row per target to path. Nil distances become empty
// cells and the evidence chips are joined with "; ".
func WriteCSV(targets []model.Target, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, t := range targets {
		if err := w.Write(csvRow(t)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", t.ID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// WriteXLSX writes the targets to a single-sheet workbook at path.
func WriteXLSX(targets []model.Target, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Targets")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, name := range csvHeader {
		header.AddCell().SetString(name)
	}
	for _, t := range targets {
		row := sheet.AddRow()
		row.AddCell().SetString(t.ID)
		row.AddCell().SetFloat(t.CentroidLat)
		row.AddCell().SetFloat(t.CentroidLon)
		row.AddCell().SetFloat(t.AreaKM2)
		row.AddCell().SetFloat(t.MeanScore)
		row.AddCell().SetFloat(t.MaxScore)
		addFloatCell(row, t.DistanceToRoadM)
		addFloatCell(row, t.DistanceToRiverM)
		row.AddCell().SetString(strings.Join(t.EvidenceSummary, "; "))
	}
	return eris.Wrapf(file.Save(path), "export: save %s", path)
}

// WriteAll writes every output format into dir and returns the file
// paths keyed by format name.
func WriteAll(targets []model.Target, dir string) (map[string]string, error) {
	outputs := map[string]string{
		"geojson": filepath.Join(dir, FileGeoJSON),
		"csv":     filepath.Join(dir, FileCSV),
		"xlsx":    filepath.Join(dir, FileXLSX),
	}
	if err := WriteGeoJSON(targets, outputs["geojson"]); err != nil {
		return nil, err
	}
	if err := WriteCSV(targets, outputs["csv"]); err != nil {
		return nil, err
	}
	if err := WriteXLSX(targets, outputs["xlsx"]); err != nil {
		return nil, err
	}
	return outputs, nil
}

func csvRow(t model.Target) []string {
	return []string{
		t.ID,
		formatFloat(t.CentroidLat),
		formatFloat(t.CentroidLon),
		formatFloat(t.AreaKM2),
		formatFloat(t.MeanScore),
		formatFloat(t.MaxScore),
		formatFloatPtr(t.DistanceToRoadM),
		formatFloatPtr(t.DistanceToRiverM),
		strings.Join(t.EvidenceSummary, "; "),
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func addFloatCell(row *xlsx.Row, v *float64) {
	if v == nil {
		row.AddCell().SetString("")
		return
	}
	row.AddCell().SetFloat(*v)
}

func nilable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
