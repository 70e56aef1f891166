// Package lock serializes work per key. The ticket opener holds a lock on
// open:<guild>:<user>[:<panel>] across the quota check and the insert so two
// concurrent requests from one member cannot both pass the quota.
package lock

import (
	"context"
	"strconv"
	"sync"
)

// Locker acquires an exclusive lock for key, blocking until it is free or
// ctx is done. The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// OpenKey builds the creation lock key for a requester and optional panel.
func OpenKey(guildID, userID string, panelID *int64) string {
	key := "open:" + guildID + ":" + userID
	if panelID != nil {
		key += ":" + strconv.FormatInt(*panelID, 10)
	}
	return key
}

// ProvisionKey builds the per-guild provisioning lock key.
func ProvisionKey(guildID string) string {
	return "provision:" + guildID
}

type keyedEntry struct {
	slot chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once no goroutine
// holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedMutex creates an empty in-process locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{slot: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			k.unref(key, entry)
		})
	}, nil
}

func (k *KeyedMutex) unref(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

// size is used by tests to check entries are reclaimed.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
