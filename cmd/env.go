package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
	"github.com/urbansafe/saferoute-cli/internal/osrm"
	"github.com/urbansafe/saferoute-cli/internal/planner"
	"github.com/urbansafe/saferoute-cli/internal/ranker"
	"github.com/urbansafe/saferoute-cli/internal/risk"
	"github.com/urbansafe/saferoute-cli/internal/scorer"
	"github.com/urbansafe/saferoute-cli/internal/store"
)

// env bundles the wired pipeline for one command invocation.
type env struct {
	store   store.Store
	planner *planner.Planner
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline wires store, datasets, provider, scorer, and ranker into a
// ready planner. Empty datasets are allowed; scoring falls back to neutral
// values.
func initPipeline(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	crimeRecords, err := st.LoadCrime(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	lightingRecords, err := st.LoadLighting(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	populationRecords, err := st.LoadPopulation(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	zap.L().Info("datasets loaded",
		zap.Int("crime", len(crimeRecords)),
		zap.Int("lighting", len(lightingRecords)),
		zap.Int("population", len(populationRecords)),
	)

	weights := scorer.DefaultWeights()
	if cfg.Scorer.WeightsProfile != "" {
		weights, err = scorer.LoadWeights(cfg.Scorer.WeightsProfile)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	radii := risk.Radii{
		CrimeDeg:      cfg.Risk.CrimeRadiusDeg,
		LightingDeg:   cfg.Risk.LightingRadiusDeg,
		PopulationDeg: cfg.Risk.PopulationRadiusDeg,
	}

	sc := scorer.New(weights, radii,
		dataset.New(crimeRecords),
		dataset.New(lightingRecords),
		dataset.New(populationRecords),
	)

	rankerCfg := ranker.DefaultConfig()
	rankerCfg.SafetyWeight = cfg.Ranker.SafetyWeight
	rankerCfg.DistanceWeight = cfg.Ranker.DistanceWeight
	rankerCfg.MaxDistanceKM = cfg.Ranker.MaxDistanceKM

	client := osrm.NewClient(osrm.Config{
		BaseURL:    cfg.OSRM.BaseURL,
		Timeout:    cfg.OSRM.Timeout(),
		RatePerSec: cfg.OSRM.RatePerSec,
		Burst:      cfg.OSRM.Burst,
		UserAgent:  cfg.OSRM.UserAgent,
	})

	p := planner.New(client, sc, ranker.New(rankerCfg), planner.Config{
		ExploreDetours:      cfg.Planner.ExploreDetours,
		DetourOffsetKM:      cfg.Planner.DetourOffsetKM,
		MaxConcurrentScores: cfg.Planner.MaxConcurrentScores,
	})

	return &env{store: st, planner: p}, nil
}
