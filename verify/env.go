package verify

import (
	"github.com/FelixaHub/mipverify/bounds"
	"github.com/FelixaHub/mipverify/cache"
	"github.com/FelixaHub/mipverify/envconfig"
	"github.com/FelixaHub/mipverify/solver"
)

// PhasesFromEnv returns the solver configurations set by MIPVERIFY_*.
func PhasesFromEnv() solver.Phases {
	return solver.Phases{
		Build: solver.Config{
			TimeLimit: envconfig.BuildTimeLimit(),
			NodeLimit: int(envconfig.BuildNodeLimit()),
		},
		Search: solver.Config{
			TimeLimit: envconfig.SearchTimeLimit(),
			NodeLimit: int(envconfig.SearchNodeLimit()),
			Gap:       envconfig.SearchGap(),
		},
	}
}

// FromEnvironment returns a Builder configured by MIPVERIFY_*. The solver
// backend must be registered, usually by importing its package. The caller
// closes the cache.
func FromEnvironment() (*Builder, error) {
	s, err := solver.New(envconfig.Solver())
	if err != nil {
		return nil, err
	}
	alg, err := bounds.ParseAlgorithm(envconfig.Tightening())
	if err != nil {
		return nil, err
	}

	b := &Builder{Solver: s, Phases: PhasesFromEnv(), Tightening: alg}
	if !envconfig.NoCache() {
		if b.Cache, err = cache.Open(envconfig.CacheBackend(), envconfig.CacheDir()); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Close releases the cache.
func (b *Builder) Close() error {
	if b.Cache == nil {
		return nil
	}
	return b.Cache.Close()
}
