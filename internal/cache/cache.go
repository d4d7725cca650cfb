// Package cache holds small in-process caches for read models.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultSize = 1024

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Purge()
}

type ttlCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewTTLCache returns a bounded cache whose entries expire ttl after they
// were set. size <= 0 uses a default bound.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) Cache[K, V] {
	if size <= 0 {
		size = defaultSize
	}
	return &ttlCache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

func (c *ttlCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

func (c *ttlCache[K, V]) Purge() {
	c.lru.Purge()
}
