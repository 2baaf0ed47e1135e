package locking

// counts live Conn values sharing one connection handle.
// the handle starts with a single reference held by the owner; clones add
// references and every Close drops one.

import (
	"fmt"
	"sync/atomic"
)

type RefCount struct {
	count atomic.Int32
}

func NewRefCount() *RefCount {
	r := &RefCount{}
	r.count.Store(1)
	return r
}

// TryInc adds a reference unless the count already reached zero.
// A released handle cannot be revived.
func (r *RefCount) TryInc() bool {
	for {
		cur := r.count.Load()
		if cur <= 0 {
			return false
		}
		if r.count.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Dec drops a reference and reports whether it was the last one.
func (r *RefCount) Dec() bool {
	newCount := r.count.Add(-1)
	if newCount < 0 {
		panic("refcount dropped below zero")
	}
	return newCount == 0
}

func (r *RefCount) Get() int32 {
	return r.count.Load()
}

func (r *RefCount) String() string {
	return fmt.Sprintf("RefCount: %d", r.Get())
}
