package audit

import (
	"sync"
	"time"
)

// sinkBreaker is a small circuit breaker around the audit sink. After
// failThreshold consecutive failures it opens for openFor, then lets a
// single probe through.
type sinkBreaker struct {
	mu               sync.Mutex
	open             bool
	probing          bool
	consecutiveFails int
	failThreshold    int
	openFor          time.Duration
	retryAt          time.Time
}

func newSinkBreaker(threshold int, openFor time.Duration) *sinkBreaker {
	return &sinkBreaker{failThreshold: threshold, openFor: openFor}
}

// Allow reports whether a write may proceed. While open, only one probe
// is admitted per openFor window.
func (b *sinkBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if time.Now().After(b.retryAt) && !b.probing {
		b.probing = true
		return true
	}
	return false
}

func (b *sinkBreaker) OnSuccess() {
	b.mu.Lock()
	b.open = false
	b.probing = false
	b.consecutiveFails = 0
	b.mu.Unlock()
}

func (b *sinkBreaker) OnFailure() {
	b.mu.Lock()
	b.consecutiveFails++
	b.probing = false
	if b.consecutiveFails >= b.failThreshold {
		b.open = true
		b.retryAt = time.Now().Add(b.openFor)
	}
	b.mu.Unlock()
}
