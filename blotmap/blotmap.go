// Package blotmap provides an insertion-ordered map whose erase leaves a
// tombstone ("blot") in place until the map is compacted.
//
// Blotting keeps iteration order stable while entries are being removed,
// and lets a later Set of the same key reuse its old position.
package blotmap

// Map is an insertion-ordered map from K to V. The zero value is not
// usable; use New.
type Map[K comparable, V any] struct {
	index   map[K]int // Key → position in entries.
	entries []entry[K, V]
	live    int
}

type entry[K comparable, V any] struct {
	key     K
	val     V
	blotted bool
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{index: make(map[K]int)}
}

// Set associates v with k. A new or previously blotted key is (re)inserted
// at its original position if it has one, else at the end.
func (m *Map[K, V]) Set(k K, v V) {
	if i, ok := m.index[k]; ok {
		if m.entries[i].blotted {
			m.entries[i].blotted = false
			m.live++
		}
		m.entries[i].val = v
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, entry[K, V]{key: k, val: v})
	m.live++
}

// Get returns the value of k, and false if k is absent or blotted.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if i, ok := m.index[k]; ok && !m.entries[i].blotted {
		return m.entries[i].val, true
	}
	var zero V
	return zero, false
}

// Has returns true if k has a live entry.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Blot erases k, leaving a tombstone. It returns false if k had no live
// entry.
func (m *Map[K, V]) Blot(k K) bool {
	i, ok := m.index[k]
	if !ok || m.entries[i].blotted {
		return false
	}
	var zero V
	m.entries[i].val = zero
	m.entries[i].blotted = true
	m.live--
	return true
}

// Len returns the number of live entries.
func (m *Map[K, V]) Len() int { return m.live }

// Range calls f on the live entries in insertion order until f returns
// false.
func (m *Map[K, V]) Range(f func(k K, v V) bool) {
	for _, e := range m.entries {
		if e.blotted {
			continue
		}
		if !f(e.key, e.val) {
			return
		}
	}
}

// Keys returns the live keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.live)
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Clear removes all entries, including tombstones.
func (m *Map[K, V]) Clear() {
	m.index = make(map[K]int)
	m.entries = nil
	m.live = 0
}

// Compact drops the tombstones, keeping the order of live entries.
func (m *Map[K, V]) Compact() {
	live := m.entries[:0]
	for _, e := range m.entries {
		if e.blotted {
			delete(m.index, e.key)
			continue
		}
		m.index[e.key] = len(live)
		live = append(live, e)
	}
	for i := len(live); i < len(m.entries); i++ {
		m.entries[i] = entry[K, V]{}
	}
	m.entries = live
}
