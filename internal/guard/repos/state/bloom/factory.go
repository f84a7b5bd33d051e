package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/navguard/internal/guard/repos/state"
)

type factory struct{}

// NewFactory returns a state.BloomFactory that sizes filters from the
// expected list length and target false-positive rate.
func NewFactory() state.BloomFactory { return factory{} }

func (factory) New(capacity uint64, fpRate float64) state.BloomFilter {
	m, k := size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}
