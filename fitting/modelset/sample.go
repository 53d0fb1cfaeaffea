package modelset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Sampler draws uniformly random subsets of distinct indexes from [0, n). It keeps a
// permutation table of the indexes and performs a partial Fisher-Yates shuffle on it for every
// draw, so no position of the original order is favored and the table never needs resetting
// between draws.
type Sampler struct {
	seed  int64
	rnd   *rand.Rand
	table []int
}

// NewSampler returns a sampler whose draws are fully determined by seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{seed: seed, rnd: rand.New(rand.NewSource(seed))}
}

// Reset prepares the sampler for a data set of n points and restarts the random sequence from
// the seed, so every run over the same data draws the same samples.
func (s *Sampler) Reset(n int) {
	s.rnd = rand.New(rand.NewSource(s.seed))
	if cap(s.table) < n {
		s.table = make([]int, n)
	}
	s.table = s.table[:n]
	for i := range s.table {
		s.table[i] = i
	}
}

// DrawIndexes returns k distinct indexes drawn without replacement. The returned slice aliases
// the sampler's table and is only valid until the next draw.
func (s *Sampler) DrawIndexes(k int) ([]int, error) {
	n := len(s.table)
	if k < 0 || k > n {
		return nil, errors.Errorf("cannot draw %d distinct samples from %d points", k, n)
	}
	for i := 0; i < k; i++ {
		j := i + s.rnd.Intn(n-i)
		s.table[i], s.table[j] = s.table[j], s.table[i]
	}
	return s.table[:k], nil
}

// RandomDraw appends k distinct points of dataSet, drawn by s, to out[:0] and returns it.
// s must have been Reset to len(dataSet).
func RandomDraw[P any](s *Sampler, dataSet []P, k int, out []P) ([]P, error) {
	if len(s.table) != len(dataSet) {
		return nil, errors.Errorf("sampler prepared for %d points but data set has %d", len(s.table), len(dataSet))
	}
	indexes, err := s.DrawIndexes(k)
	if err != nil {
		return nil, err
	}
	out = out[:0]
	for _, idx := range indexes {
		out = append(out, dataSet[idx])
	}
	return out, nil
}

// RandomDrawIndexes is a one-shot helper that draws k distinct indexes from [0, n) using rnd.
func RandomDrawIndexes(n, k int, rnd *rand.Rand) ([]int, error) {
	if k < 0 || k > n {
		return nil, errors.Errorf("cannot draw %d distinct samples from %d points", k, n)
	}
	table := make([]int, n)
	for i := range table {
		table[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rnd.Intn(n-i)
		table[i], table[j] = table[j], table[i]
	}
	return table[:k], nil
}
