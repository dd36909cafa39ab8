package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("put assigns a load time", func(t *testing.T) {
		registry := NewRegistry()
		registry.Put(&Record{ID: "alpha", State: StateEnabled})

		record, ok := registry.Get("alpha")
		require.True(t, ok)
		assert.False(t, record.LoadedAt.IsZero())
		assert.Nil(t, record.LastReloadAt)
	})

	t.Run("replacing keeps the original load time", func(t *testing.T) {
		registry := NewRegistry()
		registry.Put(&Record{ID: "alpha", Checksum: "one"})
		first, _ := registry.Get("alpha")
		loadedAt := first.LoadedAt

		registry.Put(&Record{ID: "alpha", Checksum: "two"})
		record, ok := registry.Get("alpha")
		require.True(t, ok)
		assert.Equal(t, "two", record.Checksum)
		assert.Equal(t, loadedAt, record.LoadedAt)
		require.NotNil(t, record.LastReloadAt)
	})

	t.Run("all is sorted by id", func(t *testing.T) {
		registry := NewRegistry()
		registry.Put(&Record{ID: "charlie"})
		registry.Put(&Record{ID: "alpha"})
		registry.Put(&Record{ID: "bravo"})

		all := registry.All()
		require.Len(t, all, 3)
		assert.Equal(t, "alpha", all[0].ID)
		assert.Equal(t, "bravo", all[1].ID)
		assert.Equal(t, "charlie", all[2].ID)
	})

	t.Run("by state filters", func(t *testing.T) {
		registry := NewRegistry()
		registry.Put(&Record{ID: "alpha", State: StateEnabled})
		registry.Put(&Record{ID: "bravo", State: StatePending})
		registry.Put(&Record{ID: "charlie", State: StateEnabled})

		enabled := registry.ByState(StateEnabled)
		require.Len(t, enabled, 2)
		assert.Equal(t, "alpha", enabled[0].ID)
		assert.Equal(t, "charlie", enabled[1].ID)
		assert.Empty(t, registry.ByState(StateFailed))
	})

	t.Run("record error accumulates", func(t *testing.T) {
		registry := NewRegistry()
		registry.Put(&Record{ID: "alpha"})

		require.NoError(t, registry.RecordError("alpha", errors.New("boom")))
		require.NoError(t, registry.RecordError("alpha", errors.New("again")))

		record, _ := registry.Get("alpha")
		assert.Equal(t, 2, record.ErrorCount)
		assert.EqualError(t, record.LastError, "again")
	})

	t.Run("operations on unknown plugins fail", func(t *testing.T) {
		registry := NewRegistry()
		assert.Error(t, registry.SetState("ghost", StateEnabled))
		assert.Error(t, registry.RecordError("ghost", errors.New("boom")))
		assert.Error(t, registry.Remove("ghost"))
	})

	t.Run("remove deletes the record", func(t *testing.T) {
		registry := NewRegistry()
		registry.Put(&Record{ID: "alpha"})
		require.NoError(t, registry.Remove("alpha"))
		_, ok := registry.Get("alpha")
		assert.False(t, ok)
	})
}
