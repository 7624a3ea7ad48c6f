package ingest

import "time"

// Window is one bounded [Start, End) fetch interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows partitions [start, end) into consecutive sub-windows of the given
// chunk size, the last one truncated to end. The windows cover the interval
// exactly, with no gaps and no overlap beyond shared boundaries.
func Windows(start, end time.Time, chunk time.Duration) []Window {
	if chunk <= 0 || !start.Before(end) {
		return nil
	}
	var out []Window
	for cur := start; cur.Before(end); {
		next := cur.Add(chunk)
		if next.After(end) {
			next = end
		}
		out = append(out, Window{Start: cur, End: next})
		cur = next
	}
	return out
}
