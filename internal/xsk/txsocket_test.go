package xsk

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTxSocket(t *testing.T, ringSize uint32, needsWakeup bool) *TxSocket {
	t.Helper()

	pool, err := NewFramePool(int(ringSize), 4096)
	require.NoError(t, err)

	umem := &Umem{
		pool: pool,
		fd:   -1,
		fq:   newFabricatedProdRing(ringSize, addrElemSize),
		cq:   newFabricatedConsRing(ringSize, addrElemSize),
	}

	tx := newFabricatedProdRing(ringSize, descElemSize)
	for i := uint32(0); i < ringSize; i++ {
		addr, ok := pool.Alloc()
		require.True(t, ok)
		tx.descAt(i).Addr = addr
	}

	return &TxSocket{
		fd:          -1,
		tx:          tx,
		umem:        umem,
		needsWakeup: needsWakeup,
		readyForTX:  make([]bool, ringSize),
		config:      &Config{},
	}
}

func producerIndex(s *TxSocket) uint32 {
	return atomic.LoadUint32(s.tx.ring.producer)
}

func TestTxSocket_InOrderSubmissionUnderOutOfOrderCompletion(t *testing.T) {
	// needsWakeup=true with the fabricated ring's flags word left at zero
	// means TX never attempts a real sendto() against the fake fd=-1 — this
	// test is about submission order, not the wakeup-gating behavior tested
	// separately below.
	s := newTestTxSocket(t, 8, true)

	a, err := s.NextTxSlot()
	require.NoError(t, err)
	b, err := s.NextTxSlot()
	require.NoError(t, err)
	c, err := s.NextTxSlot()
	require.NoError(t, err)

	require.EqualValues(t, 0, a.Index())
	require.EqualValues(t, 1, b.Index())
	require.EqualValues(t, 2, c.Index())

	// Completed out of order: b, then a, then c.
	require.NoError(t, s.TX(b))
	// b alone doesn't start a run at currentSlot==0, so nothing submits yet.
	assert.EqualValues(t, 0, producerIndex(s), "producer advanced before slot 0 was ready")

	require.NoError(t, s.TX(a))
	// a completes the run a,b (slots 0,1): both submit now.
	assert.EqualValues(t, 2, producerIndex(s), "producer must advance in ring-index order")

	require.NoError(t, s.TX(c))
	assert.EqualValues(t, 3, producerIndex(s))
}

func TestTxSocket_NeedsWakeupGating(t *testing.T) {
	t.Run("wakeup enabled: sendto only when flag set", func(t *testing.T) {
		s := newTestTxSocket(t, 4, true)
		desc, err := s.NextTxSlot()
		require.NoError(t, err)

		// Flags word starts at zero: needsWakeup() is false, so TX must not
		// attempt a real sendto() against the fake fd=-1 (which would error).
		require.NoError(t, s.TX(desc))
	})

	t.Run("wakeup disabled: every TX call sends unconditionally", func(t *testing.T) {
		s := newTestTxSocket(t, 4, false)
		desc, err := s.NextTxSlot()
		require.NoError(t, err)

		err = s.TX(desc)
		require.Error(t, err, "fd=-1 sendto should fail when wakeup is disabled and sendto always fires")
		assert.ErrorIs(t, err, ErrSendtoFailed)
	})
}
