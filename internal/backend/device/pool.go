package device

import (
	"sync"
)

// Size categories for pooling. Statement-scoped temporaries cluster into a
// few sizes, so a small bucketed free list removes most allocations.
const (
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 32          // Max buffers per category
)

type sizeCategory int

const (
	smallBuffer sizeCategory = iota
	mediumBuffer
	largeBuffer
)

// Pool reuses device buffers for statement-scoped temporaries. Buffers are
// bucketed by size category; Acquire returns any pooled buffer at least as
// large as requested.
type Pool struct {
	dev Device

	mu     sync.Mutex
	small  []Buffer
	medium []Buffer
	large  []Buffer

	hits   uint64
	misses uint64
}

// NewPool creates a buffer pool over the given device.
func NewPool(dev Device) *Pool {
	return &Pool{dev: dev}
}

func categorize(size int) sizeCategory {
	switch {
	case size < smallThreshold:
		return smallBuffer
	case size < mediumThreshold:
		return mediumBuffer
	default:
		return largeBuffer
	}
}

func (p *Pool) bucket(c sizeCategory) *[]Buffer {
	switch c {
	case smallBuffer:
		return &p.small
	case mediumBuffer:
		return &p.medium
	default:
		return &p.large
	}
}

// Acquire returns a buffer of at least size bytes, reusing a pooled one
// when possible.
func (p *Pool) Acquire(size int) Buffer {
	p.mu.Lock()
	bucket := p.bucket(categorize(size))
	for i, b := range *bucket {
		if b.Size() >= size {
			*bucket = append((*bucket)[:i], (*bucket)[i+1:]...)
			p.hits++
			p.mu.Unlock()
			return b
		}
	}
	p.misses++
	p.mu.Unlock()

	return p.dev.Alloc(size)
}

// Put returns a buffer to the pool. Full buckets release the buffer
// instead of holding it.
func (p *Pool) Put(b Buffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	bucket := p.bucket(categorize(b.Size()))
	if len(*bucket) < maxPoolSize {
		*bucket = append(*bucket, b)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	b.Release()
}

// Stats reports pool hits and misses since creation.
func (p *Pool) Stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

// Drain releases every pooled buffer.
func (p *Pool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bucket := range []*[]Buffer{&p.small, &p.medium, &p.large} {
		for _, b := range *bucket {
			b.Release()
		}
		*bucket = nil
	}
}
