// Package eventbus provides typed publish/subscribe topics for simulation
// notifications.
//
// Topics are single-threaded: handlers run synchronously on the publishing
// goroutine, in subscription order.
package eventbus

// Subscription identifies a handler attached to a Topic.
type Subscription uint64

// Topic fans a value of type T out to its subscribers.
type Topic[T any] struct {
	next     Subscription
	handlers []entry[T]
}

type entry[T any] struct {
	id Subscription
	fn func(T)
}

// Subscribe attaches fn and returns the handle needed to detach it.
func (t *Topic[T]) Subscribe(fn func(T)) Subscription {
	t.next++
	t.handlers = append(t.handlers, entry[T]{id: t.next, fn: fn})
	return t.next
}

// Unsubscribe detaches a handler. It reports whether the subscription existed.
func (t *Topic[T]) Unsubscribe(sub Subscription) bool {
	for i, e := range t.handlers {
		if e.id == sub {
			// copy so a snapshot held by an in-flight Publish stays intact
			handlers := make([]entry[T], 0, len(t.handlers)-1)
			handlers = append(handlers, t.handlers[:i]...)
			handlers = append(handlers, t.handlers[i+1:]...)
			t.handlers = handlers
			return true
		}
	}
	return false
}

// Publish delivers v to every handler subscribed when Publish was called.
// Handlers may subscribe or unsubscribe during delivery; changes apply to the
// next Publish.
func (t *Topic[T]) Publish(v T) {
	snapshot := t.handlers
	for _, e := range snapshot {
		e.fn(v)
	}
}

// Len returns the number of attached handlers.
func (t *Topic[T]) Len() int {
	return len(t.handlers)
}

// Clear detaches every handler.
func (t *Topic[T]) Clear() {
	t.handlers = nil
}

// Group records subscriptions so they can be detached together, typically by
// a state's exit routine.
type Group struct {
	undo []func()
}

// Add subscribes fn to topic and remembers how to detach it.
func Add[T any](g *Group, topic *Topic[T], fn func(T)) {
	sub := topic.Subscribe(fn)
	g.undo = append(g.undo, func() { topic.Unsubscribe(sub) })
}

// Len returns the number of subscriptions held.
func (g *Group) Len() int {
	return len(g.undo)
}

// Release detaches every recorded subscription.
func (g *Group) Release() {
	for _, u := range g.undo {
		u()
	}
	g.undo = nil
}
