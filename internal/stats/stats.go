// Package stats tracks per-operation call totals for shutdown reporting.
package stats

import "github.com/puzpuzpuz/xsync/v4"

// Recorder counts calls and failures per operation name. Counters are
// lock-free and a Recorder is safe for use from any number of concurrent
// tool invocations.
type Recorder struct {
	calls    *xsync.Map[string, *xsync.Counter]
	failures *xsync.Map[string, *xsync.Counter]
}

func NewRecorder() *Recorder {
	return &Recorder{
		calls:    xsync.NewMap[string, *xsync.Counter](),
		failures: xsync.NewMap[string, *xsync.Counter](),
	}
}

// Record counts one invocation of op, and its failure when err is non-nil.
func (r *Recorder) Record(op string, err error) {
	if op == "" {
		op = "unknown"
	}
	inc(r.calls, op)
	if err != nil {
		inc(r.failures, op)
	}
}

// Counts is a point-in-time view of one operation's totals.
type Counts struct {
	Calls    int64
	Failures int64
}

// Snapshot returns the current totals keyed by operation name.
func (r *Recorder) Snapshot() map[string]Counts {
	snap := make(map[string]Counts)
	r.calls.Range(func(op string, c *xsync.Counter) bool {
		snap[op] = Counts{Calls: c.Value()}
		return true
	})
	r.failures.Range(func(op string, c *xsync.Counter) bool {
		entry := snap[op]
		entry.Failures = c.Value()
		snap[op] = entry
		return true
	})
	return snap
}

func inc(m *xsync.Map[string, *xsync.Counter], key string) {
	c, _ := m.LoadOrStore(key, xsync.NewCounter())
	c.Inc()
}
