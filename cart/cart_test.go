package cart

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/daystore/storage"
	"github.com/jmcleod/daystore/storage/memory"
)

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestAddRemoveList(t *testing.T) {
	s := New(memory.NewRepository())
	assert.Empty(t, s.List())

	s.Add(Item{ID: "p1", Brand: "Acme", Model: "X1", Price: PriceOf(9.5)})
	s.Remove("p1")
	assert.Empty(t, s.List())
	assert.Equal(t, 0, s.Count())
}

func TestAddIsIdempotent(t *testing.T) {
	once := New(memory.NewRepository())
	once.Add(Item{ID: "p1", Brand: "Acme"})

	twice := New(memory.NewRepository())
	assert.True(t, twice.Add(Item{ID: "p1", Brand: "Acme"}))
	assert.False(t, twice.Add(Item{ID: "p1", Brand: "Other"}))

	assert.Equal(t, once.List(), twice.List())
	assert.Equal(t, "Acme", twice.List()[0].Brand, "second add does not overwrite")
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := New(memory.NewRepository())
	s.Add(Item{ID: "a"})
	assert.False(t, s.Remove("zzz"))
	assert.Equal(t, []string{"a"}, ids(s.List()))
}

func TestInsertionOrderPreserved(t *testing.T) {
	s := New(memory.NewRepository())
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Add(Item{ID: id})
	}
	s.Remove("b")
	s.Add(Item{ID: "b"})
	assert.Equal(t, []string{"a", "c", "d", "b"}, ids(s.List()))
	assert.Equal(t, 4, s.Count())
	assert.True(t, s.Contains("c"))
	assert.False(t, s.Contains("zzz"))
}

func TestRandomOperationsKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New(memory.NewRepository())
	var model []string

	indexOf := func(id string) int {
		for i, v := range model {
			if v == id {
				return i
			}
		}
		return -1
	}

	for step := 0; step < 2000; step++ {
		id := string(rune('a' + rng.Intn(6)))
		switch rng.Intn(10) {
		case 0:
			s.Clear()
			model = nil
		case 1, 2, 3:
			s.Remove(id)
			if i := indexOf(id); i >= 0 {
				model = append(model[:i], model[i+1:]...)
			}
		default:
			s.Add(Item{ID: id})
			if indexOf(id) < 0 {
				model = append(model, id)
			}
		}

		got := ids(s.List())
		seen := map[string]bool{}
		for _, g := range got {
			require.False(t, seen[g], "duplicate id %q at step %d", g, step)
			seen[g] = true
		}
		if len(model) == 0 {
			require.Empty(t, got)
		} else {
			require.Equal(t, model, got, "step %d", step)
		}
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := New(memory.NewRepository())
	s.Add(Item{ID: "a", Price: PriceOf(1)})
	items := s.List()
	items[0].ID = "mutated"
	*items[0].Price = 99

	got := s.List()
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 1.0, *got[0].Price)
}

func TestPersistedAcrossReopen(t *testing.T) {
	repo := memory.NewRepository()
	s1 := New(repo)
	s1.Add(Item{ID: "a", Brand: "Acme", Model: "M", Price: PriceOf(12.5)})
	s1.Add(Item{ID: "b"})

	s2 := New(repo)
	got := s2.List()
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Brand)
	require.NotNil(t, got[0].Price)
	assert.Equal(t, 12.5, *got[0].Price)
	assert.Nil(t, got[1].Price)

	s2.Clear()
	raw, err := repo.Get(storage.ClientStateBucket, cartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestPersistedFormat(t *testing.T) {
	repo := memory.NewRepository()
	s := New(repo)
	s.Add(Item{ID: "a", Brand: "Acme", Price: PriceOf(3)})

	raw, err := repo.Get(storage.ClientStateBucket, cartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","brand":"Acme","price":3}]`, string(raw))
}

func TestCorruptCartLoadsEmpty(t *testing.T) {
	for _, raw := range []string{`not json`, `{"id":"a"}`, `[1,2,3]`} {
		repo := memory.NewRepository()
		require.NoError(t, repo.Put(storage.ClientStateBucket, cartKey, []byte(raw)))

		s := New(repo)
		assert.Empty(t, s.List(), "input %q", raw)
		assert.False(t, s.Degraded())

		// The store keeps working and overwrites the bad data.
		s.Add(Item{ID: "fresh"})
		again := New(repo)
		assert.Equal(t, []string{"fresh"}, ids(again.List()))
	}
}

func TestDuplicatePersistedIdsCollapse(t *testing.T) {
	repo := memory.NewRepository()
	data, _ := json.Marshal([]Item{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: ""}})
	require.NoError(t, repo.Put(storage.ClientStateBucket, cartKey, data))

	s := New(repo)
	assert.Equal(t, []string{"a", "b"}, ids(s.List()))
}

func TestObserversNotifiedOnChange(t *testing.T) {
	s := New(memory.NewRepository())
	var counts []int
	unsubscribe := s.Subscribe(func(ev Event) { counts = append(counts, ev.Count) })

	s.Add(Item{ID: "a"})
	s.Add(Item{ID: "a"}) // no-op, no event
	s.Add(Item{ID: "b"})
	s.Remove("zzz") // no-op, no event
	s.Remove("a")
	s.Clear()
	unsubscribe()
	s.Add(Item{ID: "c"})

	assert.Equal(t, []int{1, 2, 1, 0}, counts)
}

func TestObserverSeesCommittedState(t *testing.T) {
	s := New(memory.NewRepository())
	var seen []int
	s.Subscribe(func(Event) { seen = append(seen, len(s.List())) })
	s.Add(Item{ID: "a"})
	s.Add(Item{ID: "b"})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestObserverMutationIsDeferred(t *testing.T) {
	s := New(memory.NewRepository())
	depth, maxDepth := 0, 0
	var counts []int
	s.Subscribe(func(ev Event) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		counts = append(counts, ev.Count)
		// Cap the cart at two items.
		if ev.Count > 2 {
			s.Remove(s.List()[0].ID)
		}
		depth--
	})

	s.Add(Item{ID: "a"})
	s.Add(Item{ID: "b"})
	s.Add(Item{ID: "c"})

	assert.Equal(t, 1, maxDepth)
	assert.Equal(t, []int{1, 2, 3, 2}, counts)
	assert.Equal(t, []string{"b", "c"}, ids(s.List()))
}

func TestLaterObserverSeesCurrentCount(t *testing.T) {
	s := New(memory.NewRepository())
	s.Subscribe(func(ev Event) {
		if ev.Count == 1 && !s.Contains("bonus") {
			s.Add(Item{ID: "bonus"})
		}
	})
	type seen struct{ event, count int }
	var got []seen
	s.Subscribe(func(ev Event) { got = append(got, seen{ev.Count, s.Count()}) })

	s.Add(Item{ID: "a"})
	assert.Equal(t, []seen{{2, 2}, {2, 2}}, got)
}

func TestAddRejectsEmptyID(t *testing.T) {
	repo := memory.NewRepository()
	s := New(repo)
	notified := 0
	s.Subscribe(func(Event) { notified++ })

	assert.False(t, s.Add(Item{}))
	assert.True(t, s.Add(Item{ID: "a"}))
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, notified)

	assert.Equal(t, s.List(), New(repo).List(), "reopened cart matches")
}

type brokenRepo struct{ *memory.Repository }

func (brokenRepo) Put(string, string, []byte) error { return errors.New("quota exceeded") }

func TestStorageFaultKeepsMemoryCopy(t *testing.T) {
	s := New(brokenRepo{memory.NewRepository()})
	s.Add(Item{ID: "a"})
	s.Add(Item{ID: "b"})

	assert.True(t, s.Degraded())
	assert.Equal(t, []string{"a", "b"}, ids(s.List()))
}

func TestNilRepository(t *testing.T) {
	s := New(nil)
	s.Add(Item{ID: "a"})
	assert.Equal(t, 1, s.Count())
}
