package keylock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSameKeySerializes(t *testing.T) {
	var k KeyLock
	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("ABC")
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
	if k.Len() != 0 {
		t.Errorf("entries leaked: %d", k.Len())
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	var k KeyLock
	unlockA := k.Lock("ABC")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("XYZ")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
	unlockA()
	unlockA() // idempotent
	if k.Len() != 0 {
		t.Errorf("entries leaked: %d", k.Len())
	}
}
