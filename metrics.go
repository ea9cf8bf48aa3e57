package main

import "sync/atomic"

// Metrics are runtime counters shared by the simulation, the broadcaster
// and the sessions. Safe for concurrent use.
type Metrics struct {
	Ticks          int64 // simulation ticks
	TotalTickNs    int64 // simulation time spent, in nanoseconds
	Broadcasts     int64 // broadcast ticks with at least one recipient
	FramesQueued   int64
	FramesDropped  int64 // recipient send buffer full or closed
	ActionsApplied int64
	ActionsIgnored int64 // malformed, unknown, or sent before admission
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.Ticks, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}
func (m *Metrics) IncBroadcast()     { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *Metrics) IncQueued()        { atomic.AddInt64(&m.FramesQueued, 1) }
func (m *Metrics) IncDropped()       { atomic.AddInt64(&m.FramesDropped, 1) }
func (m *Metrics) IncActionApplied() { atomic.AddInt64(&m.ActionsApplied, 1) }
func (m *Metrics) IncActionIgnored() { atomic.AddInt64(&m.ActionsIgnored, 1) }

// Snapshot returns a read-only copy for the admin API
func (m *Metrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.Ticks)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"ticks":           ticks,
		"avg_tick_ms":     avgMs,
		"broadcasts":      atomic.LoadInt64(&m.Broadcasts),
		"frames_queued":   atomic.LoadInt64(&m.FramesQueued),
		"frames_dropped":  atomic.LoadInt64(&m.FramesDropped),
		"actions_applied": atomic.LoadInt64(&m.ActionsApplied),
		"actions_ignored": atomic.LoadInt64(&m.ActionsIgnored),
	}
}
