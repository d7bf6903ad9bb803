package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

const (
	defaultPriorityCapacity = 256
	defaultOrdinaryCapacity = 1024
)

// LRU is the default Cache, backed by two independent least-recently-used
// caches so that priority (branch) entries are not evicted by a burst of
// ordinary (leaf) lookups. Grounded on ethereum-go-ethereum's pervasive
// use of hashicorp/golang-lru for trie and state caches.
type LRU struct {
	priority *lru.Cache
	ordinary *lru.Cache
}

// New builds an LRU with the given capacities. A zero value for either
// falls back to the package default.
func New(priorityCapacity, ordinaryCapacity int) (*LRU, error) {
	if priorityCapacity <= 0 {
		priorityCapacity = defaultPriorityCapacity
	}
	if ordinaryCapacity <= 0 {
		ordinaryCapacity = defaultOrdinaryCapacity
	}

	priority, err := lru.New(priorityCapacity)
	if err != nil {
		return nil, err
	}
	ordinary, err := lru.New(ordinaryCapacity)
	if err != nil {
		return nil, err
	}
	return &LRU{priority: priority, ordinary: ordinary}, nil
}

func (c *LRU) Get(key Key) ([]byte, bool) {
	if v, ok := c.priority.Get(key); ok {
		return v.([]byte), true
	}
	if v, ok := c.ordinary.Get(key); ok {
		return v.([]byte), true
	}
	return nil, false
}

func (c *LRU) Put(key Key, value []byte, priority bool) {
	if priority {
		c.priority.Add(key, value)
		return
	}
	c.ordinary.Add(key, value)
}
