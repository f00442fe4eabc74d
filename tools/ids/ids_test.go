package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnIDUnique(t *testing.T) {
	const n = 2000
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/4; j++ {
				id := ConnID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestNewGeneratorClampsNode(t *testing.T) {
	assert.Equal(t, int64(1), NewGenerator(-3).nodeID)
	assert.Equal(t, int64(1), NewGenerator(maxNode+1).nodeID)
	assert.Equal(t, int64(7), NewGenerator(7).nodeID)
}

func TestObjectIDValidator(t *testing.T) {
	v := ObjectIDValidator{}
	assert.True(t, v.IsValidIdentifier("64b7f0c2a1e4c3d2b1a09f8e"))
	assert.False(t, v.IsValidIdentifier("64b7f0c2a1e4c3d2b1a09f8"))
	assert.False(t, v.IsValidIdentifier("zzb7f0c2a1e4c3d2b1a09f8e"))
	assert.False(t, v.IsValidIdentifier(""))

	got := FilterValid(v, []string{"64b7f0c2a1e4c3d2b1a09f8e", "nope", "64b7f0c2a1e4c3d2b1a09f8f"})
	assert.Equal(t, []string{"64b7f0c2a1e4c3d2b1a09f8e", "64b7f0c2a1e4c3d2b1a09f8f"}, got)
}
