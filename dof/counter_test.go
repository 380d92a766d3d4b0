package dof_test

import (
	"sync"
	"testing"

	"bokeh-gl/dof"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterConcurrentReserve(t *testing.T) {
	const workers, perWorker, capacity = 64, 100, 5000
	counter := dof.NewCounter(capacity)

	slots := make(chan int, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if slot, ok := counter.Reserve(); ok {
					slots <- slot
				}
			}
		}()
	}
	wg.Wait()
	close(slots)

	seen := make(map[int]bool, capacity)
	for slot := range slots {
		require.False(t, seen[slot], "slot %d handed out twice", slot)
		require.Less(t, slot, capacity)
		seen[slot] = true
	}

	assert.Len(t, seen, capacity)
	assert.Equal(t, workers*perWorker, counter.Count())
	assert.Equal(t, capacity, counter.FinalizeCount())
	assert.Equal(t, workers*perWorker-capacity, counter.Dropped())
}

func TestCounterReset(t *testing.T) {
	counter := dof.NewCounter(4)
	for i := 0; i < 6; i++ {
		slot, ok := counter.Reserve()
		assert.Equal(t, i, slot)
		assert.Equal(t, i < 4, ok)
	}
	counter.Reset()
	assert.Zero(t, counter.Count())
	slot, ok := counter.Reserve()
	assert.True(t, ok)
	assert.Zero(t, slot)
}

func TestCounterZeroCapacity(t *testing.T) {
	counter := dof.NewCounter(0)
	_, ok := counter.Reserve()
	assert.False(t, ok)
	assert.Zero(t, counter.FinalizeCount())
	assert.Equal(t, 1, counter.Dropped())
}
