package cache

import "errors"

// Tiered checks each layer in order and back-fills faster layers on a hit
// from a slower one. Writes go to every layer.
type Tiered struct {
	layers []ResponseCache
	stats  *CacheStats
}

// NewTiered stacks caches fastest first. Nil layers are skipped.
func NewTiered(layers ...ResponseCache) *Tiered {
	t := &Tiered{stats: NewCacheStats()}
	for _, l := range layers {
		if l != nil {
			t.layers = append(t.layers, l)
		}
	}
	return t
}

// Len returns the number of active layers.
func (t *Tiered) Len() int {
	return len(t.layers)
}

func (t *Tiered) Get(key string) ([]byte, bool) {
	for i, l := range t.layers {
		body, ok := l.Get(key)
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			t.layers[j].Set(key, body)
		}
		t.stats.RecordHit()
		return body, true
	}
	t.stats.RecordMiss()
	return nil, false
}

func (t *Tiered) Set(key string, body []byte) bool {
	stored := false
	for _, l := range t.layers {
		if l.Set(key, body) {
			stored = true
		}
	}
	if stored {
		t.stats.RecordSet()
	}
	return stored
}

// Stats counts lookups against the stack as a whole: a hit in any layer is
// one hit.
func (t *Tiered) Stats() StatsSnapshot {
	return t.stats.Snapshot()
}

func (t *Tiered) Close() error {
	var errs []error
	for _, l := range t.layers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
