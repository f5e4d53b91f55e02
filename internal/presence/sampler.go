package presence

import (
	"math/rand"
	"sync"
)

const DefaultSweepProbability = 0.10

// Sampler decides whether a heartbeat also sweeps the game for stale
// players.
type Sampler interface {
	ShouldSweep() bool
}

type ProbabilitySampler struct {
	p    float64
	mu   sync.Mutex
	rand *rand.Rand
}

func NewProbabilitySampler(p float64, r *rand.Rand) *ProbabilitySampler {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}
	return &ProbabilitySampler{p: p, rand: r}
}

func (s *ProbabilitySampler) ShouldSweep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64() < s.p
}

type AlwaysSampler struct{}

func (AlwaysSampler) ShouldSweep() bool { return true }

type NeverSampler struct{}

func (NeverSampler) ShouldSweep() bool { return false }
