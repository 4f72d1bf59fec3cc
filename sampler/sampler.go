// Package sampler provides seeded, reproducible downsampling.
package sampler

import (
	"github.com/carbocation/ngsio"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// FractionalSampler keeps about Fraction of the elements it is asked about.
// Every call to Keep consumes exactly one draw from the seeded source, so the
// sequence of decisions depends only on the seed and the number of calls made
// so far. It is not safe for concurrent use.
type FractionalSampler struct {
	fraction float64
	draw     distuv.Bernoulli
}

// New returns a sampler that keeps fraction (between 0 and 1, inclusive) of
// elements on average.
func New(fraction float64, seed uint64) (*FractionalSampler, error) {
	if !(fraction >= 0 && fraction <= 1) {
		return nil, ngsio.Errorf(ngsio.InvalidArgument, "sampling fraction %v must be between 0.0 and 1.0", fraction)
	}

	return &FractionalSampler{
		fraction: fraction,
		draw: distuv.Bernoulli{
			P:   fraction,
			Src: rand.NewSource(seed),
		},
	}, nil
}

// Keep randomly returns true approximately Fraction() of the time.
func (s *FractionalSampler) Keep() bool {
	return s.draw.Rand() == 1
}

// Fraction is the fraction of elements that will be kept.
func (s *FractionalSampler) Fraction() float64 {
	return s.fraction
}
