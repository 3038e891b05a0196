package address

import (
	"context"
	"sync"

	"ecollect/pkg/platform/sentinel"
)

// MemoryDirectory serves postal code lookups from an in-memory map.
type MemoryDirectory struct {
	mu     sync.RWMutex
	places map[string]Place
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{places: make(map[string]Place)}
}

// Add registers a postal code entry.
func (d *MemoryDirectory) Add(postalCode string, place Place) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.places[postalCode] = place
}

func (d *MemoryDirectory) FindByPostalCode(_ context.Context, postalCode string) (*Place, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	place, exists := d.places[postalCode]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := place
	return &copied, nil
}
