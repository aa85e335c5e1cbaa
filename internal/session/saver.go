package session

import (
	"context"
	"time"
)

const saveTimeout = 15 * time.Second

// markDirty schedules a persistence pass. The signal channel holds at
// most one pending save, so rapid successive mutations coalesce into a
// single write of the latest snapshot.
func (s *Session) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// saver is the per-session persistence loop: at most one save is in
// flight at a time, and every save reads the latest in-memory state
// rather than a captured-at-call-time snapshot. A slow save for station
// N-1 therefore can never clobber the newer state written for station
// N. On shutdown the loop performs one final flush and then signals
// stopped, which Close waits on.
func (s *Session) saver() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			s.saveNow(ctx)
			cancel()
			return
		case <-s.dirty:
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			s.saveNow(ctx)
			cancel()
		}
	}
}
