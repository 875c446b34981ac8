package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/atlas-cli/internal/cache"
)

// CachedInfrastructure caches the line sets of an inner source keyed by
// the query bounds, so repeated runs over one AOI hit the network once.
type CachedInfrastructure struct {
	Inner InfrastructureSource
	Cache *cache.Cache
}

type cachedLines struct {
	Roads  []json.RawMessage `json:"roads"`
	Rivers []json.RawMessage `json:"rivers"`
	Coast  []json.RawMessage `json:"coast"`
}

// FetchLines serves from the cache when possible, filling it from the
// inner source otherwise.
func (c CachedInfrastructure) FetchLines(ctx context.Context, minLon, minLat, maxLon, maxLat float64) (InfrastructureLines, error) {
	key := cache.Key("osm-lines",
		fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", minLon, minLat, maxLon, maxLat))

	data, err := c.Cache.GetOrFill(ctx, key, func(ctx context.Context) ([]byte, error) {
		lines, err := c.Inner.FetchLines(ctx, minLon, minLat, maxLon, maxLat)
		if err != nil {
			return nil, err
		}
		return encodeLines(lines)
	})
	if err != nil {
		return InfrastructureLines{}, err
	}
	return decodeLines(data)
}

func encodeLines(lines InfrastructureLines) ([]byte, error) {
	var out cachedLines
	var err error
	if out.Roads, err = encodeGeoms(lines.Roads.Geoms); err != nil {
		return nil, err
	}
	if out.Rivers, err = encodeGeoms(lines.Rivers.Geoms); err != nil {
		return nil, err
	}
	if out.Coast, err = encodeGeoms(lines.Coast.Geoms); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func encodeGeoms(geoms []geom.T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(geoms))
	for _, g := range geoms {
		b, err := geojson.Marshal(g)
		if err != nil {
			return nil, eris.Wrap(err, "sources: encode cached line")
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeLines(data []byte) (InfrastructureLines, error) {
	var in cachedLines
	if err := json.Unmarshal(data, &in); err != nil {
		return InfrastructureLines{}, eris.Wrap(err, "sources: decode cached lines")
	}
	out := emptyLines()
	var err error
	if out.Roads.Geoms, err = decodeGeoms(in.Roads); err != nil {
		return InfrastructureLines{}, err
	}
	if out.Rivers.Geoms, err = decodeGeoms(in.Rivers); err != nil {
		return InfrastructureLines{}, err
	}
	if out.Coast.Geoms, err = decodeGeoms(in.Coast); err != nil {
		return InfrastructureLines{}, err
	}
	return out, nil
}

func decodeGeoms(raws []json.RawMessage) ([]geom.T, error) {
	var out []geom.T
	for _, raw := range raws {
		var g geom.T
		if err := geojson.Unmarshal(raw, &g); err != nil {
			return nil, eris.Wrap(err, "sources: decode cached line")
		}
		out = append(out, g)
	}
	return out, nil
}

var _ InfrastructureSource = CachedInfrastructure{}
