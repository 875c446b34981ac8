package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/atlas-cli/internal/cache"
	"github.com/sells-group/atlas-cli/internal/pipeline"
	"github.com/sells-group/atlas-cli/internal/progress"
	"github.com/sells-group/atlas-cli/internal/sources"
	"github.com/sells-group/atlas-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildPipeline assembles the run pipeline from configuration. Imagery
// and terrain come from the built-in deterministic synthetic sources;
// infrastructure lines come from Overpass when enabled, cached on disk.
func buildPipeline(st store.Store) (*pipeline.Pipeline, error) {
	imagery := sources.SyntheticImagery{
		Width:  cfg.Imagery.Width,
		Height: cfg.Imagery.Height,
		Seed:   cfg.Imagery.Seed,
	}

	var infra sources.InfrastructureSource = sources.StaticInfrastructure{}
	if cfg.Overpass.Enabled {
		overpass := sources.NewOverpass(sources.OverpassOptions{
			Endpoint:  cfg.Overpass.Endpoint,
			UserAgent: cfg.Overpass.UserAgent,
			Timeout:   time.Duration(cfg.Overpass.TimeoutSecs) * time.Second,
			Rate:      rate.Limit(cfg.Overpass.RatePerSec),
		})
		c, err := cache.New(cfg.Data.CacheDir)
		if err != nil {
			return nil, err
		}
		infra = sources.CachedInfrastructure{Inner: overpass, Cache: c}
	}

	return pipeline.New(st, imagery, sources.SyntheticTerrain{}, infra,
		progress.ZapSink{}, cfg.Data.WorkDir), nil
}
