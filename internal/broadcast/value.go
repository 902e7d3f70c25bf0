package broadcast

import "sync"

// Value holds the latest value of a signal and pushes every update to its subscribers.
// It expects a single writer; any number of goroutines may read or subscribe.
type Value[T any] struct {
	mu     sync.RWMutex
	cur    T
	subs   map[int]chan T
	nextID int
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[int]chan T)}
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.cur
}

// Store replaces the current value and notifies subscribers without blocking.
// A subscriber whose buffer is full loses its oldest pending update, so the
// last value it receives is always the latest stored one.
func (v *Value[T]) Store(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cur = val
	for _, ch := range v.subs {
		deliver(ch, val)
	}
}

// deliver sends val on ch, evicting the oldest buffered value when ch is full.
// Only Store sends on subscriber channels, and it holds the write lock.
func deliver[T any](ch chan T, val T) {
	for {
		select {
		case ch <- val:
			return
		default:
		}

		select {
		case <-ch:
		default:
			if cap(ch) == 0 {
				return
			}
		}
	}
}

// Subscribe returns a channel receiving subsequent updates and a function that
// cancels the subscription and closes the channel. The cancel func is idempotent.
func (v *Value[T]) Subscribe(buffer int) (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	ch := make(chan T, buffer)
	v.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
			close(ch)
		})
	}
}
