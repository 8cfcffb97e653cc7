package app

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastRequestTS atomic.Int64

// newRequestID generates the external ticket handle. Ids are "REQ-" plus a
// nanosecond timestamp forced to be strictly increasing within the process
// so concurrent creates never collide.
func newRequestID(now time.Time) string {
	ts := now.UnixNano()
	for {
		last := lastRequestTS.Load()
		if ts <= last {
			ts = last + 1
		}
		if lastRequestTS.CompareAndSwap(last, ts) {
			return "REQ-" + strconv.FormatInt(ts, 10)
		}
	}
}
