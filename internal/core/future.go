package core

// future is a single-resolution value. Subscribing to a resolved future runs
// the callback immediately; otherwise it is queued until resolve.
type future[T any] struct {
	resolved bool
	value    T
	waiters  []func(T) error
}

func (f *future[T]) subscribe(cb func(T) error) error {
	if f.resolved {
		return cb(f.value)
	}
	f.waiters = append(f.waiters, cb)
	return nil
}

// resolve settles the future and drains its waiters in subscription order.
// Waiters subscribed while draining run immediately. Resolving twice is a no-op.
func (f *future[T]) resolve(v T) error {
	if f.resolved {
		return nil
	}
	f.resolved = true
	f.value = v
	waiters := f.waiters
	f.waiters = nil
	for _, cb := range waiters {
		if err := cb(v); err != nil {
			return err
		}
	}
	return nil
}
