// Package keylock provides a mutex per string key.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock serializes callers sharing a key while letting different keys
// proceed in parallel. Entries are released when unused. The zero value is
// ready to use.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Lock blocks until key is held and returns its unlock function.
func (k *KeyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*entry)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
