package random

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform returns a uniform distribution on [lo, hi) drawing from src.
func Uniform(src rand.Source, lo, hi float64) distuv.Uniform {
	return distuv.Uniform{Min: lo, Max: hi, Src: src}
}

// Gauss returns a normal distribution drawing from src.
func Gauss(src rand.Source, mean, sigma float64) distuv.Normal {
	return distuv.Normal{Mu: mean, Sigma: sigma, Src: src}
}

// Gamma returns a gamma distribution with shape alpha and rate beta.
func Gamma(src rand.Source, alpha, beta float64) distuv.Gamma {
	return distuv.Gamma{Alpha: alpha, Beta: beta, Src: src}
}

// Poisson returns a Poisson distribution with mean lambda.
func Poisson(src rand.Source, lambda float64) distuv.Poisson {
	return distuv.Poisson{Lambda: lambda, Src: src}
}

// A *Generator is itself a rand.Source, so distributions built over the
// generator a stage spawned share its single stream:
//
//	rng := svc.SpawnGenerator(ctx)
//	pt := random.Uniform(rng, 0.5, 10).Rand()
var _ rand.Source = (*Generator)(nil)
