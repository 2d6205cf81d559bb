package straitlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventIDGeneratorSeedInRange(t *testing.T) {
	for i := 0; i < 64; i++ {
		g := newEventIDGenerator()
		require.NotZero(t, g.state)
		require.Less(t, g.state, idPrime)
	}
}

func TestEventIDGeneratorNoRepeats(t *testing.T) {
	g := newEventIDGenerator()

	n := 1 << 17
	seen := make(map[uint64]struct{}, n)
	for i := 0; i < n; i++ {
		id := g.next()
		require.NotZero(t, id)
		require.Less(t, id, idPrime)

		_, dup := seen[id]
		require.False(t, dup, "id %d repeated after %d draws", id, i)
		seen[id] = struct{}{}
	}
}
