// internal/game/scheduler.go
//
// Delayed-action primitive used by the match processor.
// RealScheduler is backed by time.AfterFunc; ManualScheduler is a virtual
// clock that tests advance explicitly.

package game

import (
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled action that can be cancelled before it fires.
type Timer interface {
	// Stop cancels the action. It reports false if the action already ran
	// or was already stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer wheel.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler fires tasks only when Advance moves its clock past them.
// Tasks due at the same instant run in the order they were scheduled.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
	owner   *ManualScheduler
}

// NewManualScheduler returns a clock at zero with no tasks.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

// AfterFunc implements Scheduler.
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{at: m.now + d, seq: m.seq, f: f, owner: m}
	m.tasks = append(m.tasks, t)
	return t
}

// Stop implements Timer.
func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, running every task that falls due,
// including tasks scheduled by tasks run during this call.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		t.f()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// Pending reports how many tasks are still waiting to fire.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (m *ManualScheduler) popDue(target time.Duration) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.tasks = live
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at != m.tasks[j].at {
			return m.tasks[i].at < m.tasks[j].at
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].at > target {
		return nil
	}
	t := m.tasks[0]
	t.fired = true
	if t.at > m.now {
		m.now = t.at
	}
	return t
}
