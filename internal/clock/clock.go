// Package clock abstracts timers so the poll loop, retry delay and
// search debounce can run under virtual time in tests. Production code
// injects Real(); tests inject Fake() and call Advance.
package clock

import "time"

// Clock is the timer surface the console uses. Code that would call
// time.Now, time.After, time.AfterFunc or time.NewTicker takes a Clock
// instead.
type Clock interface {
    Now() time.Time
    After(d time.Duration) <-chan time.Time
    AfterFunc(d time.Duration, f func()) *Timer
    NewTicker(d time.Duration) *Ticker
}

// Timer is a cancellable one-shot timer. For AfterFunc timers C is nil.
type Timer struct {
    C <-chan time.Time

    stop func() bool
}

// Stop cancels the timer. It reports whether the call prevented the
// timer from firing.
func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers periodic ticks on C. Stop releases it; C is never
// closed. The channel holds one pending tick; extra ticks are dropped.
type Ticker struct {
    C <-chan time.Time

    stop func()
}

// Stop turns the ticker off. No ticks are delivered after Stop returns.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return sysClock{} }

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

func (sysClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (sysClock) AfterFunc(d time.Duration, f func()) *Timer {
    t := time.AfterFunc(d, f)
    return &Timer{stop: t.Stop}
}

func (sysClock) NewTicker(d time.Duration) *Ticker {
    t := time.NewTicker(d)
    return &Ticker{C: t.C, stop: t.Stop}
}
