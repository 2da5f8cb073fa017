package registry

import (
	"sync"
	"sync/atomic"
)

// Subscription is the handle returned by OnRegistered. Unsubscribe stops
// further notifications; it is idempotent and safe to call concurrently.
type Subscription struct {
	once sync.Once
	list *subscriberList
	cb   func()
}

// Unsubscribe detaches the callback. Notifications already in flight may
// still be delivered.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.list != nil {
			s.list.remove(s)
		}
	})
}

// subscriberList holds the observers for one (type, contract) key. Mutations
// happen under the list's lock and republish an immutable snapshot, so
// delivery iterates user callbacks without holding any lock.
type subscriberList struct {
	mu   sync.Mutex
	subs []*Subscription
	snap atomic.Pointer[[]*Subscription]
}

func (l *subscriberList) add(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, s)
	l.republishLocked()
}

func (l *subscriberList) remove(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cur := range l.subs {
		if cur == s {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			break
		}
	}
	l.republishLocked()
}

func (l *subscriberList) republishLocked() {
	snap := make([]*Subscription, len(l.subs))
	copy(snap, l.subs)
	l.snap.Store(&snap)
}

func (l *subscriberList) notify() {
	p := l.snap.Load()
	if p == nil {
		return
	}
	for _, s := range *p {
		s.cb()
	}
}

// notifier routes registration-change notifications by key.
type notifier struct {
	mu    sync.Mutex
	lists map[serviceKey]*subscriberList
}

func (n *notifier) listFor(k serviceKey) *subscriberList {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lists == nil {
		n.lists = make(map[serviceKey]*subscriberList)
	}
	l := n.lists[k]
	if l == nil {
		l = &subscriberList{}
		n.lists[k] = l
	}
	return l
}

func (n *notifier) fire(k serviceKey) {
	n.mu.Lock()
	l := n.lists[k]
	n.mu.Unlock()
	if l != nil {
		l.notify()
	}
}

// drain detaches every subscribed callback and returns them for one final
// invocation during teardown.
func (n *notifier) drain() []func() {
	n.mu.Lock()
	lists := n.lists
	n.lists = nil
	n.mu.Unlock()

	var out []func()
	for _, l := range lists {
		l.mu.Lock()
		for _, s := range l.subs {
			out = append(out, s.cb)
		}
		l.subs = nil
		l.republishLocked()
		l.mu.Unlock()
	}
	return out
}
