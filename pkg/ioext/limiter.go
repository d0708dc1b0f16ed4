// Package ioext implements the byte-accounted, rate-limited duplex
// wrappers the inspection bridge places around every socket it relays
// (spec §4.6): a triple of {inner connection, stats sinks, speed limit}
// per direction, windowed at a configurable millisecond granularity.
package ioext

import (
	"context"
	"sync"
	"time"
)

// Limit bounds one direction's traffic per window of width 2^ShiftMillis
// milliseconds: a read, write or datagram may start only while the
// window's byte count is under MaxBytes and its packet count is under
// MaxPackets. The chunk that crosses a cap is not split, so a window's
// total can exceed that cap by one chunk. A zero MaxBytes or MaxPackets means that dimension is
// unlimited; a zero Limit (both zero) is unlimited in both.
type Limit struct {
	ShiftMillis uint
	MaxBytes    uint64
	MaxPackets  uint64
}

func (l Limit) unlimited() bool {
	return l.MaxBytes == 0 && l.MaxPackets == 0
}

// limiter tracks one direction's window state. The window id is
// now_millis >> ShiftMillis (spec §4.6 step 1); crossing into a new
// window resets both counters to zero before any cap check (step 2).
type limiter struct {
	mu          sync.Mutex
	limit       Limit
	windowID    int64
	bytesUsed   uint64
	packetsUsed uint64
	now         func() time.Time
}

func newLimiter(limit Limit) *limiter {
	return &limiter{limit: limit, now: time.Now}
}

func (l *limiter) windowFor(t time.Time) int64 {
	return t.UnixMilli() >> l.limit.ShiftMillis
}

// wait blocks until the current window has headroom under both caps,
// rolling the window forward (and resetting counters) as real time
// passes. It returns early with ctx's error if ctx is canceled while
// waiting.
func (l *limiter) wait(ctx context.Context) error {
	if l.limit.unlimited() {
		return nil
	}
	for {
		l.mu.Lock()
		now := l.now()
		w := l.windowFor(now)
		if w != l.windowID {
			l.windowID = w
			l.bytesUsed = 0
			l.packetsUsed = 0
		}
		underBytes := l.limit.MaxBytes == 0 || l.bytesUsed < l.limit.MaxBytes
		underPackets := l.limit.MaxPackets == 0 || l.packetsUsed < l.limit.MaxPackets
		if underBytes && underPackets {
			l.mu.Unlock()
			return nil
		}
		nextWindowStartMillis := (w + 1) << l.limit.ShiftMillis
		sleepFor := time.Duration(nextWindowStartMillis-now.UnixMilli()) * time.Millisecond
		l.mu.Unlock()

		if sleepFor <= 0 {
			sleepFor = time.Millisecond
		}
		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// record adds a completed chunk's size to the current window's counters
// (spec §4.6 step 4, "on success, adds transferred bytes to counters").
func (l *limiter) record(nBytes uint64, nPackets uint64) {
	l.mu.Lock()
	l.bytesUsed += nBytes
	l.packetsUsed += nPackets
	l.mu.Unlock()
}

// SpeedLimit is the per-flow speed-limit configuration spec.md §3 names:
// one window width shared by both directions, independent byte/packet
// caps per direction.
type SpeedLimit struct {
	ShiftMillis     uint
	MaxNorthPackets uint64
	MaxNorthBytes   uint64
	MaxSouthPackets uint64
	MaxSouthBytes   uint64
}

// North is the limit applied to traffic flowing client -> upstream.
func (s SpeedLimit) North() Limit {
	return Limit{ShiftMillis: s.ShiftMillis, MaxBytes: s.MaxNorthBytes, MaxPackets: s.MaxNorthPackets}
}

// South is the limit applied to traffic flowing upstream -> client.
func (s SpeedLimit) South() Limit {
	return Limit{ShiftMillis: s.ShiftMillis, MaxBytes: s.MaxSouthBytes, MaxPackets: s.MaxSouthPackets}
}
