package driftchat

import (
	"context"
	"sync"
	"time"
)

const refreshTimeout = 10 * time.Second

// UnreadAggregator derives the tab badge total from directory room
// summaries. It is refreshed on navigation focus, independent of whether any
// chat room is open. A failed refresh degrades to a badge of zero rather
// than showing a stale number.
type UnreadAggregator struct {
	directory Directory
	logger    Logger

	mu       sync.Mutex
	total    int
	onChange func(int)
}

func NewUnreadAggregator(directory Directory) *UnreadAggregator {
	return &UnreadAggregator{directory: directory, logger: noopLogger{}}
}

// SetLogger overrides the logger (optional).
func (a *UnreadAggregator) SetLogger(l Logger) {
	if l != nil {
		a.logger = l
	}
}

// OnChange registers a callback fired when the badge total changes.
func (a *UnreadAggregator) OnChange(fn func(total int)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// Refresh re-fetches room summaries and recomputes the badge total. The
// returned figure reflects server state at call time only.
func (a *UnreadAggregator) Refresh(ctx context.Context) int {
	total := 0
	rooms, err := a.directory.ListRooms(ctx)
	if err != nil {
		a.logger.Warn("unread refresh failed, badge reset", map[string]any{"error": err.Error()})
	} else {
		for _, r := range rooms {
			total += r.UnreadCount
		}
	}

	a.mu.Lock()
	changed := total != a.total
	a.total = total
	fn := a.onChange
	a.mu.Unlock()

	if changed && fn != nil {
		fn(total)
	}
	return total
}

// Total returns the last computed badge total.
func (a *UnreadAggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// BindFocus refreshes the badge on every navigation focus event.
func (a *UnreadAggregator) BindFocus(src FocusSource) {
	src.OnFocus(func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		a.Refresh(ctx)
	})
}
