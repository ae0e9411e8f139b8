package storage

// IndexedMap is a Map whose writes fan out to a set of secondary indexes
//, so callers can look entries up either by primary
// key or by an index key without scanning the whole namespace.
type IndexedMap[K any, V any] struct {
	Primary Map[K, V]
	indexes []indexUpdater[K, V]
}

type indexUpdater[K any, V any] interface {
	Save(b Backend, pk K, v V) error
	Remove(b Backend, pk K, v V)
}

func NewIndexedMap[K any, V any](primary Map[K, V], indexes ...indexUpdater[K, V]) IndexedMap[K, V] {
	return IndexedMap[K, V]{Primary: primary, indexes: indexes}
}

func (m IndexedMap[K, V]) MayLoad(b Backend, k K) (V, bool, error) {
	return m.Primary.MayLoad(b, k)
}

func (m IndexedMap[K, V]) Load(b Backend, k K) (V, error) {
	return m.Primary.Load(b, k)
}

func (m IndexedMap[K, V]) Has(b Backend, k K) bool {
	return m.Primary.Has(b, k)
}

// Save writes the primary entry and updates every index, first removing
// the old value's index entries if one existed (so a value update that
// changes its index key doesn't leave a stale entry behind).
func (m IndexedMap[K, V]) Save(b Backend, k K, v V) error {
	if old, ok, err := m.Primary.MayLoad(b, k); err == nil && ok {
		for _, idx := range m.indexes {
			idx.Remove(b, k, old)
		}
	}
	if err := m.Primary.Save(b, k, v); err != nil {
		return err
	}
	for _, idx := range m.indexes {
		if err := idx.Save(b, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m IndexedMap[K, V]) Remove(b Backend, k K) error {
	old, ok, err := m.Primary.MayLoad(b, k)
	if err != nil {
		return err
	}
	if ok {
		for _, idx := range m.indexes {
			idx.Remove(b, k, old)
		}
	}
	m.Primary.Remove(b, k)
	return nil
}

func (m IndexedMap[K, V]) Range(b Backend, min, max *K, order Order) ([]Entry[K, V], error) {
	return m.Primary.Range(b, min, max, order)
}
