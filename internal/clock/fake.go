package clock

import (
    "sort"
    "sync"
    "time"
)

// Fake returns a deterministic Clock pinned to start. Time moves only
// when Advance is called; pending timers whose deadline falls inside the
// advanced window fire in deadline order.
//
// Safe for concurrent use. AfterFunc callbacks run synchronously inside
// Advance, so they must not call Advance themselves.
func Fake(start time.Time) *FakeClock {
    fc := &FakeClock{now: start}
    fc.changed = sync.NewCond(&fc.mu)
    return fc
}

// FakeClock implements Clock with manually driven time.
type FakeClock struct {
    mu      sync.Mutex
    now     time.Time
    pending []*waiter
    changed *sync.Cond
}

// waiter is one scheduled timer, ticker cycle or After channel.
type waiter struct {
    deadline time.Time
    ch       chan time.Time // nil for AfterFunc waiters
    fn       func()         // nil for channel waiters
    every    time.Duration  // non-zero for tickers, rescheduled on fire
    dead     bool           // stopped or already fired
}

func (c *FakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    ch := make(chan time.Time, 1)
    if d <= 0 {
        ch <- c.now
        return ch
    }
    c.pending = append(c.pending, &waiter{deadline: c.now.Add(d), ch: ch})
    c.changed.Broadcast()
    return ch
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
    if d <= 0 {
        f()
        return &Timer{stop: func() bool { return false }}
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    w := &waiter{deadline: c.now.Add(d), fn: f}
    c.pending = append(c.pending, w)
    c.changed.Broadcast()
    return &Timer{stop: func() bool {
        c.mu.Lock()
        defer c.mu.Unlock()
        if w.dead {
            return false
        }
        w.dead = true
        return true
    }}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
    if d <= 0 {
        panic("clock: non-positive ticker interval")
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    w := &waiter{deadline: c.now.Add(d), ch: make(chan time.Time, 1), every: d}
    c.pending = append(c.pending, w)
    c.changed.Broadcast()
    return &Ticker{C: w.ch, stop: func() {
        c.mu.Lock()
        defer c.mu.Unlock()
        w.dead = true
    }}
}

// Advance moves the clock forward by d, firing every waiter whose
// deadline is reached. Ticker waiters fire once per elapsed interval;
// channel sends never block (a full channel drops the tick, matching
// time.Ticker).
func (c *FakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    c.now = c.now.Add(d)
    target := c.now
    c.mu.Unlock()

    for {
        due := c.takeDue(target)
        if len(due) == 0 {
            return
        }
        sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
        for _, w := range due {
            if w.fn != nil {
                w.fn()
                continue
            }
            select {
            case w.ch <- target:
            default:
            }
        }
    }
}

// takeDue removes waiters due at or before target, rescheduling tickers
// for their next interval.
func (c *FakeClock) takeDue(target time.Time) []*waiter {
    c.mu.Lock()
    defer c.mu.Unlock()

    var due, keep []*waiter
    for _, w := range c.pending {
        switch {
        case w.dead:
        case !w.deadline.After(target):
            due = append(due, w)
        default:
            keep = append(keep, w)
        }
    }
    for _, w := range due {
        if w.every > 0 {
            w.deadline = w.deadline.Add(w.every)
            keep = append(keep, w)
        } else {
            w.dead = true
        }
    }
    c.pending = keep
    return due
}

// WaitForTimers blocks until at least n waiters are pending. It closes
// the race between a goroutine arming its timer and the test advancing
// the clock.
func (c *FakeClock) WaitForTimers(n int) {
    c.mu.Lock()
    defer c.mu.Unlock()
    for c.live() < n {
        c.changed.Wait()
    }
}

func (c *FakeClock) live() int {
    n := 0
    for _, w := range c.pending {
        if !w.dead {
            n++
        }
    }
    return n
}
