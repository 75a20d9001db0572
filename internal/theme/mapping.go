package theme

import "iter"

// Mapping is an insertion-ordered theme. Setting an existing key keeps its
// position and replaces the value.
type Mapping struct {
	order []string
	index map[string]Entry
}

func (m *Mapping) Set(key string, e Entry) {
	if m.index == nil {
		m.index = make(map[string]Entry)
	}
	if _, ok := m.index[key]; !ok {
		m.order = append(m.order, key)
	}
	m.index[key] = e
}

func (m Mapping) Get(key string) (Entry, bool) {
	if m.index == nil {
		return Entry{}, false
	}
	e, ok := m.index[key]
	return e, ok
}

func (m Mapping) Len() int {
	return len(m.order)
}

func (m Mapping) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

func (m Mapping) All() iter.Seq2[string, Entry] {
	return func(yield func(string, Entry) bool) {
		for _, key := range m.order {
			if !yield(key, m.index[key]) {
				return
			}
		}
	}
}

// Merge returns base followed by highlights; later keys overwrite earlier ones.
func Merge(base, highlights Mapping) Mapping {
	var out Mapping
	for key, e := range base.All() {
		out.Set(key, e)
	}
	for key, e := range highlights.All() {
		out.Set(key, e)
	}
	return out
}
