package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator_Sequential(t *testing.T) {
	gen := NewSequenceGenerator("g")

	assert.Equal(t, "g-1", gen.Generate())
	assert.Equal(t, "g-2", gen.Generate())
	assert.Equal(t, "g-3", gen.Generate())
}

func TestSequenceGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "group-1", NewSequenceGenerator("").Generate())
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	gen := NewSequenceGenerator("g")
	const goroutines = 100

	labels := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels <- gen.Generate()
		}()
	}
	wg.Wait()
	close(labels)

	seen := make(map[string]bool)
	for l := range labels {
		assert.False(t, seen[l], "duplicate label %s", l)
		seen[l] = true
	}
	assert.Len(t, seen, goroutines)
}
