// Package seatmap implements the concurrent in-memory seat table.  It is a
// fixed-capacity hash table with separate chaining; each entry owns its
// seat record and a dedicated mutex.  The capacity is set at construction
// and never changes — there is no rehashing.
//
// Concurrency contract: all mutations that must be atomic across fields
// acquire the per-entry mutex first (Lock/Unlock by composite key).  Get
// reads without the entry mutex and therefore observes an atomic snapshot
// only at field granularity; callers that need a consistent record must
// lock first.  FindByToken checks each entry under its mutex but its
// result is a copy that can stale immediately.  Structural changes
// (insert, delete) are serialized by a table-level read-write mutex and
// must not run concurrently with live traffic.
package seatmap

import (
	"sync"
	"time"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/utils"
)

// DefaultCapacity is the bucket count used when the caller passes zero.
const DefaultCapacity = 16384

type entry struct {
	mu   sync.Mutex
	seat model.Seat
	next *entry
}

// Map is the process-wide seat table.  Chains are prepend-ordered: the
// most recently inserted entry for a bucket is scanned first.
type Map struct {
	mu    sync.RWMutex // guards table structure and chain links
	cap   uint64
	table []*entry
}

// New creates a seat map with the given bucket count.  A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Map {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Map{
		cap:   uint64(capacity),
		table: make([]*entry, capacity),
	}
}

func (m *Map) bucket(eventID, seatID string) uint64 {
	return utils.KeyHash(eventID, seatID) % m.cap
}

// find walks a chain for the full composite key.  Callers must hold m.mu
// in at least read mode.
func (m *Map) find(eventID, seatID string) *entry {
	for e := m.table[m.bucket(eventID, seatID)]; e != nil; e = e.next {
		if e.seat.EventID == eventID && e.seat.SeatID == seatID {
			return e
		}
	}
	return nil
}

// Put inserts or overwrites the seat record for (EventID, SeatID).  An
// existing entry is overwritten in place, preserving its mutex; the
// record's Version is bumped past the stored one and UpdatedUnix is
// refreshed.  A new entry is prepended to its chain with the record's
// Version kept as given and UpdatedUnix set to the current time.
//
// Overwriting callers that mutate live seats must hold the entry lock.
func (m *Map) Put(seat model.Seat) {
	m.mu.RLock()
	if e := m.find(seat.EventID, seat.SeatID); e != nil {
		seat.Version = e.seat.Version + 1
		seat.UpdatedUnix = time.Now().Unix()
		e.seat = seat
		m.mu.RUnlock()
		return
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check under the write lock; another goroutine may have inserted.
	if e := m.find(seat.EventID, seat.SeatID); e != nil {
		seat.Version = e.seat.Version + 1
		seat.UpdatedUnix = time.Now().Unix()
		e.seat = seat
		return
	}
	idx := m.bucket(seat.EventID, seat.SeatID)
	seat.UpdatedUnix = time.Now().Unix()
	m.table[idx] = &entry{seat: seat, next: m.table[idx]}
}

// Get copies the seat record for the composite key.  The read does not
// take the entry mutex; see the package contract.
func (m *Map) Get(eventID, seatID string) (model.Seat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e := m.find(eventID, seatID); e != nil {
		return e.seat, true
	}
	return model.Seat{}, false
}

// Delete unlinks the entry for the composite key.  Returns false when the
// key is absent.  The caller must not hold the entry's lock.
func (m *Map) Delete(eventID, seatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.bucket(eventID, seatID)
	var prev *entry
	for e := m.table[idx]; e != nil; e = e.next {
		if e.seat.EventID == eventID && e.seat.SeatID == seatID {
			if prev != nil {
				prev.next = e.next
			} else {
				m.table[idx] = e.next
			}
			return true
		}
		prev = e
	}
	return false
}

// Lock acquires the per-entry mutex for the composite key.  Returns false
// when the key is absent; the caller must not Unlock in that case.
func (m *Map) Lock(eventID, seatID string) bool {
	m.mu.RLock()
	e := m.find(eventID, seatID)
	m.mu.RUnlock()
	if e == nil {
		return false
	}
	e.mu.Lock()
	return true
}

// Unlock releases the per-entry mutex for the composite key.  A no-op
// when the key is absent.
func (m *Map) Unlock(eventID, seatID string) {
	m.mu.RLock()
	e := m.find(eventID, seatID)
	m.mu.RUnlock()
	if e != nil {
		e.mu.Unlock()
	}
}

// FindByToken linearly scans all buckets for a HELD seat whose hold token
// matches and returns a copy of the first match.  Each entry is checked
// under its own mutex, but the seat is unlocked again by the time the
// copy reaches the caller, so the result can go stale immediately;
// callers must Lock the resolved seat and revalidate before acting on
// it.  Must not be called while holding an entry lock.
func (m *Map) FindByToken(token []byte) (model.Seat, bool) {
	if len(token) == 0 {
		return model.Seat{}, false
	}
	// Snapshot the chains first so no table lock is held while entry
	// locks are taken.
	m.mu.RLock()
	entries := make([]*entry, 0, 64)
	for _, head := range m.table {
		for e := head; e != nil; e = e.next {
			entries = append(entries, e)
		}
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.seat.Status == model.StatusHeld && utils.TokenEqual(e.seat.HoldToken, token) {
			seat := e.seat
			e.mu.Unlock()
			return seat, true
		}
		e.mu.Unlock()
	}
	return model.Seat{}, false
}

// Len counts the entries currently in the table.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, head := range m.table {
		for e := head; e != nil; e = e.next {
			n++
		}
	}
	return n
}
