package storage

// Set is a Map[K, struct{}] specialization: membership only, no value
// payload.
type Set[K any] struct {
	m Map[K, struct{}]
}

func NewSet[K any](namespace []byte, keys KeyCodec[K]) Set[K] {
	return Set[K]{m: NewMap[K, struct{}](namespace, keys)}
}

func (s Set[K]) Has(b Backend, k K) bool {
	return s.m.Has(b, k)
}

func (s Set[K]) Insert(b Backend, k K) error {
	return s.m.Save(b, k, struct{}{})
}

func (s Set[K]) Remove(b Backend, k K) {
	s.m.Remove(b, k)
}

func (s Set[K]) Range(b Backend, min, max *K, order Order) ([]K, error) {
	entries, err := s.m.Range(b, min, max, order)
	if err != nil {
		return nil, err
	}
	out := make([]K, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out, nil
}

func (s Set[K]) Prefix(b Backend, rel []byte, order Order) ([]K, error) {
	entries, err := s.m.Prefix(b, rel, order)
	if err != nil {
		return nil, err
	}
	out := make([]K, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out, nil
}

func (s Set[K]) Clear(b Backend) {
	s.m.Clear(b)
}
