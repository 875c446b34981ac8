package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/atlas-cli/internal/model"
)

// encodeTarget flattens a target into the column values shared by both
// backends: geometry as GeoJSON, evidence and summary as JSON.
func encodeTarget(t model.Target) (geomJSON, evidenceJSON, summaryJSON string, err error) {
	g, err := geojson.Marshal(t.Geometry)
	if err != nil {
		return "", "", "", eris.Wrapf(err, "store: marshal target geometry %s", t.ID)
	}
	ev, err := json.Marshal(t.Evidence)
	if err != nil {
		return "", "", "", eris.Wrapf(err, "store: marshal target evidence %s", t.ID)
	}
	sum, err := json.Marshal(t.EvidenceSummary)
	if err != nil {
		return "", "", "", eris.Wrapf(err, "store: marshal target summary %s", t.ID)
	}
	return string(g), string(ev), string(sum), nil
}

func decodeTargetGeometry(geomJSON string) (*geom.Polygon, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(geomJSON), &g); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal target geometry")
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("store: target geometry is %T, want polygon", g)
	}
	return poly, nil
}

func decodeStages(stagesJSON string) ([]string, error) {
	if stagesJSON == "" {
		return nil, nil
	}
	var stages []string
	if err := json.Unmarshal([]byte(stagesJSON), &stages); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal run stages")
	}
	return stages, nil
}
