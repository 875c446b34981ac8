package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// DefaultOverpassURL is the public Overpass API interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// OverpassOptions configures the Overpass client.
type OverpassOptions struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
	// Rate caps queries per second against the shared public endpoint.
	Rate rate.Limit
}

// Overpass fetches roads, rivers and coastline ways from the Overpass
// API. Fetch failures degrade to empty feature sets: missing
// infrastructure weakens proximity evidence but never fails a run.
type Overpass struct {
	client  *http.Client
	opts    OverpassOptions
	limiter *rate.Limiter
}

// NewOverpass creates an Overpass client with defaults filled in.
func NewOverpass(opts OverpassOptions) *Overpass {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultOverpassURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "atlas-cli/1.0"
	}
	if opts.Rate == 0 {
		opts.Rate = 1
	}
	return &Overpass{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(opts.Rate, 1),
	}
}

type overpassResponse struct {
	Elements []struct {
		Type     string            `json:"type"`
		Tags     map[string]string `json:"tags"`
		Geometry []struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"geometry"`
	} `json:"elements"`
}

// FetchLines queries highway, river/stream and coastline ways inside
// the bounding box and classifies them into the three sets.
func (o *Overpass) FetchLines(ctx context.Context, minLon, minLat, maxLon, maxLat float64) (InfrastructureLines, error) {
	bbox := fmt.Sprintf("%g,%g,%g,%g", minLat, minLon, maxLat, maxLon)
	query := fmt.Sprintf(`[out:json][timeout:90];
(
  way["highway"](%[1]s);
  way["waterway"~"river|stream"](%[1]s);
  way["natural"="coastline"](%[1]s);
);
out geom;`, bbox)

	body, err := o.post(ctx, query)
	if err != nil {
		zap.L().Warn("sources: overpass fetch failed, continuing with empty line sets",
			zap.Error(err))
		return emptyLines(), nil
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		zap.L().Warn("sources: overpass response unparseable, continuing with empty line sets",
			zap.Error(err))
		return emptyLines(), nil
	}

	out := emptyLines()
	for _, el := range resp.Elements {
		if el.Type != "way" || len(el.Geometry) < 2 {
			continue
		}
		flat := make([]float64, 0, len(el.Geometry)*2)
		for _, c := range el.Geometry {
			flat = append(flat, c.Lon, c.Lat)
		}
		line := geom.NewLineStringFlat(geom.XY, flat)
		switch {
		case el.Tags["highway"] != "":
			out.Roads.Geoms = append(out.Roads.Geoms, line)
		case el.Tags["waterway"] == "river" || el.Tags["waterway"] == "stream":
			out.Rivers.Geoms = append(out.Rivers.Geoms, line)
		case el.Tags["natural"] == "coastline":
			out.Coast.Geoms = append(out.Coast.Geoms, line)
		}
	}
	zap.L().Info("sources: fetched overpass lines",
		zap.Int("roads", len(out.Roads.Geoms)),
		zap.Int("rivers", len(out.Rivers.Geoms)),
		zap.Int("coast", len(out.Coast.Geoms)))
	return out, nil
}

func (o *Overpass) post(ctx context.Context, query string) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limiter wait")
	}
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.opts.Endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", o.opts.UserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read response")
	}
	return body, nil
}

func emptyLines() InfrastructureLines {
	crs := raster.CRSWGS84
	return InfrastructureLines{
		Roads:  model.FeatureSet{CRS: crs},
		Rivers: model.FeatureSet{CRS: crs},
		Coast:  model.FeatureSet{CRS: crs},
	}
}
