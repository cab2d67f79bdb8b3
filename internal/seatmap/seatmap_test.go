package seatmap

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-reservation/internal/model"
)

func mkSeat(ev, sid string, price int32) model.Seat {
	return model.Seat{
		EventID:    ev,
		SeatID:     sid,
		PriceCents: price,
		Status:     model.StatusAvailable,
	}
}

func TestPutGet(t *testing.T) {
	m := New(128)

	m.Put(mkSeat("E1", "A1", 1000))
	m.Put(mkSeat("E1", "A2", 1200))
	m.Put(mkSeat("E2", "X9", 9900))

	s, ok := m.Get("E1", "A1")
	require.True(t, ok)
	assert.EqualValues(t, 1000, s.PriceCents)

	s, ok = m.Get("E1", "A2")
	require.True(t, ok)
	assert.EqualValues(t, 1200, s.PriceCents)

	s, ok = m.Get("E2", "X9")
	require.True(t, ok)
	assert.EqualValues(t, 9900, s.PriceCents)

	_, ok = m.Get("E1", "missing")
	assert.False(t, ok)

	assert.Equal(t, 3, m.Len())
}

func TestOverwriteInPlace(t *testing.T) {
	m := New(64)
	m.Put(mkSeat("E1", "A1", 1000))

	s, _ := m.Get("E1", "A1")
	s.PriceCents = 1500
	m.Put(s)

	out, ok := m.Get("E1", "A1")
	require.True(t, ok)
	assert.EqualValues(t, 1500, out.PriceCents)
	assert.Equal(t, 1, m.Len(), "overwrite must not grow the table")
}

func TestVersionMonotonic(t *testing.T) {
	m := New(64)
	m.Put(mkSeat("E1", "A1", 1000))

	last := uint32(0)
	for i := 0; i < 10; i++ {
		s, ok := m.Get("E1", "A1")
		require.True(t, ok)
		s.PriceCents++
		m.Put(s)
		out, _ := m.Get("E1", "A1")
		assert.Greater(t, out.Version, last)
		last = out.Version
	}
}

func TestDelete(t *testing.T) {
	m := New(64)
	m.Put(mkSeat("E1", "A1", 1000))
	m.Put(mkSeat("E1", "A2", 1100))

	assert.True(t, m.Delete("E1", "A1"))
	assert.False(t, m.Delete("E1", "A1"))
	_, ok := m.Get("E1", "A1")
	assert.False(t, ok)
	_, ok = m.Get("E1", "A2")
	assert.True(t, ok)
}

func TestLockAbsent(t *testing.T) {
	m := New(64)
	assert.False(t, m.Lock("E1", "nope"))

	m.Put(mkSeat("E1", "A1", 1000))
	require.True(t, m.Lock("E1", "A1"))
	m.Unlock("E1", "A1")
}

func TestFindByToken(t *testing.T) {
	m := New(64)

	held := mkSeat("E1", "A1", 1000)
	held.Status = model.StatusHeld
	held.HolderUserID = "U1"
	held.HoldExpiresUnix = 1
	held.HoldToken = []byte("tok-one")
	m.Put(held)

	available := mkSeat("E1", "A2", 1000)
	m.Put(available)

	s, ok := m.FindByToken([]byte("tok-one"))
	require.True(t, ok)
	assert.Equal(t, "A1", s.SeatID)

	_, ok = m.FindByToken([]byte("tok-two"))
	assert.False(t, ok)

	_, ok = m.FindByToken(nil)
	assert.False(t, ok)

	// A matching token on a non-HELD seat must not resolve.
	sold := held
	sold.SeatID = "A3"
	sold.Status = model.StatusSold
	m.Put(sold)
	s, ok = m.FindByToken([]byte("tok-one"))
	require.True(t, ok)
	assert.Equal(t, "A1", s.SeatID)
}

// Four workers increment the price 10k times each under the per-seat
// lock; every update must survive.
func TestConcurrentLockedUpdates(t *testing.T) {
	m := New(16)
	m.Put(mkSeat("EV", "S", 0))

	const workers = 4
	const iters = 10000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				if !m.Lock("EV", "S") {
					t.Error("lock failed for seeded seat")
					return
				}
				s, ok := m.Get("EV", "S")
				if !ok {
					t.Error("seeded seat vanished")
					m.Unlock("EV", "S")
					return
				}
				s.PriceCents++
				m.Put(s)
				m.Unlock("EV", "S")
			}
		}()
	}
	wg.Wait()

	s, ok := m.Get("EV", "S")
	require.True(t, ok)
	assert.EqualValues(t, workers*iters, s.PriceCents, "no lost updates")
	assert.EqualValues(t, workers*iters, s.Version)
}

// Collisions are forced by a single-bucket table; chain scans must still
// resolve every key by full key equality.
func TestCollisionChains(t *testing.T) {
	m := New(1)
	for i := 0; i < 50; i++ {
		m.Put(mkSeat("EV", fmt.Sprintf("S%02d", i), int32(i)))
	}
	assert.Equal(t, 50, m.Len())
	for i := 0; i < 50; i++ {
		s, ok := m.Get("EV", fmt.Sprintf("S%02d", i))
		require.True(t, ok)
		assert.EqualValues(t, i, s.PriceCents)
	}
	require.True(t, m.Delete("EV", "S25"))
	assert.Equal(t, 49, m.Len())
	_, ok := m.Get("EV", "S25")
	assert.False(t, ok)
}
