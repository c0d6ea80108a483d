package identity

import "sync"

// SessionEvent is delivered to observers on every sign-in and sign-out.
// Identity is nil when UID just signed out.
type SessionEvent struct {
	UID       string
	SessionID string
	Identity  *Identity
}

type observers struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]func(SessionEvent)
}

func (o *observers) add(fn func(SessionEvent)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fns == nil {
		o.fns = make(map[int]func(SessionEvent))
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

// notify calls every observer outside the lock so a callback may unsubscribe.
func (o *observers) notify(ev SessionEvent) {
	o.mu.RLock()
	fns := make([]func(SessionEvent), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
