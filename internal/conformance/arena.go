package conformance

import (
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"
)

// ConformanceID indexes a record in its Arena.
type ConformanceID uint32

// NoConformanceID is the reserved zero index.
const NoConformanceID ConformanceID = 0

// IsValid reports whether id refers to a record.
func (id ConformanceID) IsValid() bool { return id != NoConformanceID }

// Arena owns every conformance record of a compilation and the conformance
// lists held by substitutions. Records live as long as the arena; there is
// no way to free one.
type Arena struct {
	mu      sync.RWMutex
	records []Conformance
	copies  int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{records: make([]Conformance, 1, 64)}
}

func (a *Arena) add(c Conformance) ConformanceID {
	a.mu.Lock()
	defer a.mu.Unlock()
	value, err := safecast.Conv[uint32](len(a.records))
	if err != nil {
		panic(fmt.Errorf("conformance arena overflow: %w", err))
	}
	a.records = append(a.records, c)
	return ConformanceID(value)
}

// Get returns the record stored under id.
func (a *Arena) Get(id ConformanceID) (Conformance, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !id.IsValid() || int(id) >= len(a.records) {
		return nil, false
	}
	return a.records[id], true
}

// Len reports the number of records, excluding the sentinel.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records) - 1
}

// All returns the records in allocation order.
func (a *Arena) All() []Conformance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.records[1:])
}

// AllocateCopy copies a conformance list into arena-owned storage.
func (a *Arena) AllocateCopy(cs []Conformance) []Conformance {
	if len(cs) == 0 {
		return nil
	}
	a.mu.Lock()
	a.copies++
	a.mu.Unlock()
	return slices.Clone(cs)
}

// Copies reports how many conformance lists were copied into the arena.
func (a *Arena) Copies() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.copies
}
