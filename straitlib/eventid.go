package straitlib

import (
	"os"

	"github.com/google/uuid"
	"github.com/lithdew/bytesutil"
)

// Correlation ids come from a Lehmer-style multiplicative recurrence over
// a large prime field. One generator never repeats an id within its
// period, so two simultaneously pending requests on one manager cannot
// share an id. Cross-manager uniqueness is probabilistic only: the seed
// mixes fresh randomness with process identity. Not a source of
// unpredictability, just of collision avoidance.
const (
	idPrime      uint64 = 1<<63 - 165
	idMultiplier uint64 = 2
)

type eventIDGenerator struct {
	state uint64
}

func newEventIDGenerator() *eventIDGenerator {
	u := uuid.New()
	state := (bytesutil.Uint64BE(u[:8]) + uint64(os.Getpid())) % idPrime
	if state == 0 {
		state = 1
	}
	return &eventIDGenerator{state: state}
}

func (g *eventIDGenerator) next() uint64 {
	// state < 2^63, so doubling cannot overflow a uint64.
	g.state = g.state * idMultiplier % idPrime
	return g.state
}
