package storage

import (
	"sync"
)

type subscriberID int64

// CancelFn has to be called to unsubscribe.
type CancelFn func()

// dispatcher implements the fan-out pattern: a value published under a key is
// delivered to the subscribers of that key and to the subscribers of all keys.
// Callbacks run on the publishing goroutine, outside of the lock, so they may
// call back into the storage.
type dispatcher[K comparable, V any] struct {
	mu        sync.RWMutex
	keyed     map[K]map[subscriberID]func(V)
	all       map[subscriberID]func(V)
	keys      map[subscriberID][]K
	currentID subscriberID
}

func newDispatcher[K comparable, V any]() *dispatcher[K, V] {
	return &dispatcher[K, V]{
		keyed:     map[K]map[subscriberID]func(V){},
		all:       map[subscriberID]func(V){},
		keys:      map[subscriberID][]K{},
		currentID: 1,
	}
}

// register subscribes fn to keys, or to every key if keys is empty.
func (d *dispatcher[K, V]) register(keys []K, fn func(V)) CancelFn {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.currentID
	d.currentID += 1
	if len(keys) == 0 {
		d.all[id] = fn
		return func() { d.unsubscribe(id) }
	}
	d.keys[id] = keys
	for _, key := range keys {
		subscribers, ok := d.keyed[key]
		if !ok {
			subscribers = map[subscriberID]func(V){}
			d.keyed[key] = subscribers
		}
		subscribers[id] = fn
	}
	return func() { d.unsubscribe(id) }
}

func (d *dispatcher[K, V]) unsubscribe(id subscriberID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.all[id]; ok {
		delete(d.all, id)
		return
	}
	keys, ok := d.keys[id]
	if !ok {
		return
	}
	delete(d.keys, id)
	for _, key := range keys {
		subscribers, ok := d.keyed[key]
		if !ok {
			continue
		}
		delete(subscribers, id)
		if len(subscribers) == 0 {
			delete(d.keyed, key)
		}
	}
}

func (d *dispatcher[K, V]) dispatch(key K, value V) {
	d.mu.RLock()
	fns := make([]func(V), 0, len(d.all)+len(d.keyed[key]))
	for _, fn := range d.all {
		fns = append(fns, fn)
	}
	for _, fn := range d.keyed[key] {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(value)
	}
}
