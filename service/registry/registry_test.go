package registry_test

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"PRelay/service/registry"
	"PRelay/service/registry/registrytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitEvictLastConnection(t *testing.T) {
	r := registry.New(registry.Conf{})

	require.NoError(t, r.Admit(registrytest.NewConn("c1", "A")))
	require.NoError(t, r.Admit(registrytest.NewConn("c2", "B")))
	require.NoError(t, r.Admit(registrytest.NewConn("c3", "B")))
	assert.Equal(t, []string{"A", "B"}, r.Snapshot())
	assert.Len(t, r.ConnectionsFor("B"), 2)

	user, last := r.Evict("c2")
	assert.False(t, last, "B still has c3")
	assert.Empty(t, user)
	assert.True(t, r.IsOnline("B"))

	user, last = r.Evict("c3")
	assert.True(t, last)
	assert.Equal(t, "B", user)
	assert.Equal(t, []string{"A"}, r.Snapshot())
	assert.Empty(t, r.ConnectionsFor("B"))
}

func TestEvictIsIdempotent(t *testing.T) {
	r := registry.New(registry.Conf{})
	require.NoError(t, r.Admit(registrytest.NewConn("c1", "A")))

	user, last := r.Evict("c1")
	assert.True(t, last)
	assert.Equal(t, "A", user)

	for _, id := range []string{"c1", "never", ""} {
		user, last = r.Evict(id)
		assert.False(t, last, id)
		assert.Empty(t, user, id)
	}
	assert.Empty(t, r.Snapshot())
}

func TestAdmitRejects(t *testing.T) {
	r := registry.New(registry.Conf{})
	assert.ErrorIs(t, r.Admit(nil), registry.ErrInvalidConn)
	assert.ErrorIs(t, r.Admit(registrytest.NewConn("", "A")), registry.ErrInvalidConn)
	assert.ErrorIs(t, r.Admit(registrytest.NewConn("c1", "")), registry.ErrInvalidConn)

	require.NoError(t, r.Admit(registrytest.NewConn("c1", "A")))
	assert.ErrorIs(t, r.Admit(registrytest.NewConn("c1", "B")), registry.ErrConnExists)
	assert.Equal(t, []string{"A"}, r.Snapshot())
}

func TestLookupAndStats(t *testing.T) {
	r := registry.New(registry.Conf{})
	require.NoError(t, r.Admit(registrytest.NewConn("c1", "A")))
	require.NoError(t, r.Admit(registrytest.NewConn("c2", "A")))

	c, ok := r.Lookup("c2")
	require.True(t, ok)
	assert.Equal(t, "A", c.UserID)
	assert.False(t, c.CreatedAt.IsZero())

	users, conns := r.Stats()
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, conns)
	assert.Len(t, r.All(), 2)
}

// Snapshot must equal the set of users holding at least one live connection
// after every mutation, whatever the interleaving.
func TestSnapshotInvariantUnderChurn(t *testing.T) {
	r := registry.New(registry.Conf{})
	const workers, ops = 8, 300

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			var mine []string
			for i := 0; i < ops; i++ {
				if len(mine) > 0 && rng.Intn(3) == 0 {
					k := rng.Intn(len(mine))
					r.Evict(mine[k])
					mine = append(mine[:k], mine[k+1:]...)
					continue
				}
				id := fmt.Sprintf("w%d-c%d", w, i)
				user := fmt.Sprintf("u%d", rng.Intn(5)+w*5)
				if err := r.Admit(registrytest.NewConn(id, user)); err == nil {
					mine = append(mine, id)
				}
			}
		}(w)
	}
	wg.Wait()

	want := map[string]struct{}{}
	for _, c := range r.All() {
		want[c.UserID()] = struct{}{}
	}
	var wantList []string
	for u := range want {
		wantList = append(wantList, u)
		assert.NotEmpty(t, r.ConnectionsFor(u))
	}
	sort.Strings(wantList)
	if wantList == nil {
		wantList = []string{}
	}
	assert.Equal(t, wantList, r.Snapshot())
}

func TestSequentialInvariant(t *testing.T) {
	r := registry.New(registry.Conf{})
	live := map[string]string{} // conn -> user
	check := func() {
		users := map[string]struct{}{}
		for _, u := range live {
			users[u] = struct{}{}
		}
		got := r.Snapshot()
		assert.Len(t, got, len(users))
		for _, u := range got {
			_, ok := users[u]
			assert.True(t, ok, u)
		}
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 {
			id := fmt.Sprintf("c%d", rng.Intn(40))
			user := fmt.Sprintf("u%d", rng.Intn(6))
			if err := r.Admit(registrytest.NewConn(id, user)); err == nil {
				live[id] = user
			}
		} else {
			id := fmt.Sprintf("c%d", rng.Intn(40))
			user, last := r.Evict(id)
			if owner, ok := live[id]; ok {
				delete(live, id)
				stillOnline := false
				for _, u := range live {
					if u == owner {
						stillOnline = true
					}
				}
				assert.Equal(t, !stillOnline, last)
				if last {
					assert.Equal(t, owner, user)
				}
			} else {
				assert.False(t, last)
			}
		}
		check()
	}
}
