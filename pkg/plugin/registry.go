package plugin

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry tracks plugin records and their state. Safe for concurrent use.
type Registry struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Put inserts or replaces a record. Replacing an existing record counts as a
// reload and keeps the original load time.
func (r *Registry) Put(record *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.records[record.ID]; exists {
		now := time.Now()
		record.LoadedAt = prev.LoadedAt
		record.LastReloadAt = &now
	} else if record.LoadedAt.IsZero() {
		record.LoadedAt = time.Now()
	}
	r.records[record.ID] = record
}

// Get retrieves a record by plugin id.
func (r *Registry) Get(pluginID string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.records[pluginID]
	return record, exists
}

// All returns all records sorted by plugin id.
func (r *Registry) All() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// ByState returns records currently in the given state.
func (r *Registry) ByState(state State) []*Record {
	var out []*Record
	for _, record := range r.All() {
		if record.State == state {
			out = append(out, record)
		}
	}
	return out
}

// Update applies a mutation to a record under the write lock.
func (r *Registry) Update(pluginID string, updater func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[pluginID]
	if !exists {
		return fmt.Errorf("plugin %s not found", pluginID)
	}
	updater(record)
	return nil
}

// SetState transitions a plugin to the given state.
func (r *Registry) SetState(pluginID string, state State) error {
	return r.Update(pluginID, func(record *Record) {
		record.State = state
	})
}

// RecordError notes a failure against a plugin.
func (r *Registry) RecordError(pluginID string, err error) error {
	return r.Update(pluginID, func(record *Record) {
		record.ErrorCount++
		record.LastError = err
	})
}

// Remove deletes a record.
func (r *Registry) Remove(pluginID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[pluginID]; !exists {
		return fmt.Errorf("plugin %s not found", pluginID)
	}
	delete(r.records, pluginID)
	return nil
}
