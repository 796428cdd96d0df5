package loader

// KeyMap maps a parent's natural key to the surrogate id the store
// generated for it. It is filled while a plan loads and read by the steps
// that follow, all inside one transaction.
type KeyMap[K comparable] struct {
	ids map[K]int64
}

// NewKeyMap returns an empty map.
func NewKeyMap[K comparable]() *KeyMap[K] {
	return &KeyMap[K]{ids: make(map[K]int64)}
}

func (m *KeyMap[K]) Put(key K, id int64) {
	m.ids[key] = id
}

func (m *KeyMap[K]) Get(key K) (int64, bool) {
	id, ok := m.ids[key]
	return id, ok
}

func (m *KeyMap[K]) Len() int {
	return len(m.ids)
}

// SeasonKey is the natural key of a season.
type SeasonKey struct {
	ContentID    int64
	SeasonNumber int
}

// EpisodeKey is the natural key of an episode.
type EpisodeKey struct {
	ContentID     int64
	SeasonNumber  int
	EpisodeNumber int
}
