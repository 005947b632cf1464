package service

import (
	"context"
	"sync"
)

// keyedLocker serializes work per key. Entries are dropped once nobody holds
// or waits for them.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock blocks until the key is free or ctx is done
func (l *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyedLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.release(key, entry)
		}, nil
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}
}

func (l *keyedLocker) release(key string, entry *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
