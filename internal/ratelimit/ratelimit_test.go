package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BudgetExhaustion(t *testing.T) {
	l := New(3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("alice@acme.com"), "request %d within budget", i+1)
	}
	assert.False(t, l.Allow("alice@acme.com"), "budget exhausted")
}

func TestLimiter_SubjectsAreIndependent(t *testing.T) {
	l := New(1)
	assert.True(t, l.Allow("alice@acme.com"))
	assert.False(t, l.Allow("alice@acme.com"))
	assert.True(t, l.Allow("bob@acme.com"), "one subject's exhaustion must not affect another")
}

func TestLimiter_LazyCleanup(t *testing.T) {
	l := New(10)
	current := time.Now()
	l.now = func() time.Time { return current }

	l.Allow("alice@acme.com")
	l.Allow("bob@acme.com")
	assert.Equal(t, 2, l.Size())

	// Idle past the stale horizon; the next access reaps.
	current = current.Add(staleAfter + time.Minute)
	l.Allow("carol@x.com")
	assert.Equal(t, 1, l.Size(), "stale entries reaped on access")
}

func TestLimiter_CleanupKeepsActiveSubjects(t *testing.T) {
	l := New(10)
	current := time.Now()
	l.now = func() time.Time { return current }

	l.Allow("alice@acme.com")

	// Keep alice active across several cleanup intervals.
	for i := 0; i < 5; i++ {
		current = current.Add(2 * time.Minute)
		l.Allow("alice@acme.com")
	}
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Allow("alice@acme.com")
				l.Allow("bob@acme.com")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, l.Size())
}
