// Package scheduler delays the cursor advance that follows a swipe decision.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	// Stop cancels the timer. It reports false if fn already ran or was stopped.
	Stop() bool
}

// Real schedules on the wall clock. fn runs on its own goroutine.
type Real struct{}

func NewReal() Real {
	return Real{}
}

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Manual is a Scheduler whose clock only moves when told to. Callbacks run on
// the goroutine calling Advance or Flush, in due order.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	nextID uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	m   *Manual
	id  uint64
	due time.Duration
	fn  func()
}

func NewManual() *Manual {
	return &Manual{timers: make(map[uint64]*manualTimer)}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := &manualTimer{m: m, id: m.nextID, due: m.now + d, fn: fn}
	m.timers[t.id] = t
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if _, ok := t.m.timers[t.id]; !ok {
		return false
	}
	delete(t.m.timers, t.id)
	return true
}

// Advance moves the clock forward by d and runs every timer that came due.
// Timers scheduled by those callbacks run too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	ran := 0
	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		t.fn()
		ran++
	}

	m.mu.Lock()
	if m.now < target {
		m.now = target
	}
	m.mu.Unlock()
	return ran
}

// Flush runs every pending timer regardless of its due time.
func (m *Manual) Flush() int {
	ran := 0
	for {
		t := m.popDue(-1)
		if t == nil {
			return ran
		}
		t.fn()
		ran++
	}
}

// Pending reports how many timers are scheduled and not yet run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// popDue removes and returns the earliest timer due by target, or any timer
// when target is negative.
func (m *Manual) popDue(target time.Duration) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.timers) == 0 {
		return nil
	}

	due := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if target < 0 || t.due <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})

	t := due[0]
	delete(m.timers, t.id)
	if t.due > m.now {
		m.now = t.due
	}
	return t
}
