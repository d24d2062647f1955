// Package health runs named diagnostic checks once and reports the outcome.
//
// Each check gets its own timeout and a number of attempts: a check must fail
// on every attempt before it is reported as failed, which lets a diagnosis
// ride out a database that is still starting. Checks run concurrently;
// results are reported in registration order.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// Pinger is implemented by connection pools.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Result is the outcome of a single check.
type Result struct {
	Name     string
	Err      error
	Attempts int
	Duration time.Duration
}

// OK reports whether the check passed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report holds the results of a run in registration order.
type Report []Result

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	for _, res := range r {
		if !res.OK() {
			return false
		}
	}
	return true
}

// Failures returns a map of check name to error message for failed checks.
func (r Report) Failures() map[string]string {
	failures := make(map[string]string)
	for _, res := range r {
		if !res.OK() {
			failures[res.Name] = res.Err.Error()
		}
	}
	return failures
}

// Checker holds registered checks.
type Checker struct {
	attempts int
	backoff  time.Duration

	mu     sync.Mutex
	checks []check
}

// New creates a Checker that tries each check up to attempts times, waiting
// backoff between attempts.
func New(attempts int, backoff time.Duration) *Checker {
	if attempts < 1 {
		attempts = 1
	}
	return &Checker{attempts: attempts, backoff: backoff}
}

// Add registers a check.
func (c *Checker) Add(name string, timeout time.Duration, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks = append(c.checks, check{name: name, timeout: timeout, fn: fn})
}

// Run executes every registered check concurrently and waits for all of
// them.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	checks := make([]check, len(c.checks))
	copy(checks, c.checks)
	c.mu.Unlock()

	report := make(Report, len(checks))
	var wg sync.WaitGroup
	for i, chk := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report[i] = c.runCheck(ctx, chk)
		}()
	}
	wg.Wait()

	return report
}

func (c *Checker) runCheck(ctx context.Context, chk check) Result {
	res := Result{Name: chk.name}
	start := time.Now()

	for res.Attempts < c.attempts {
		res.Attempts++
		res.Err = runOnce(ctx, chk)
		if res.Err == nil || res.Attempts == c.attempts {
			break
		}

		select {
		case <-ctx.Done():
			res.Duration = time.Since(start)
			return res
		case <-time.After(c.backoff):
		}
	}

	res.Duration = time.Since(start)
	return res
}

func runOnce(ctx context.Context, chk check) error {
	checkCtx, cancel := context.WithTimeout(ctx, chk.timeout)
	defer cancel()

	return chk.fn(checkCtx)
}
