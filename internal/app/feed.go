package app

import (
	"sync"

	"github.com/raysh454/trygglink/internal/model"
)

type FeedEventType string

const (
	FeedScanCompleted     FeedEventType = "scan_completed"
	FeedDeepScanCompleted FeedEventType = "deep_scan_completed"
)

// FeedEvent is pushed to live subscribers after a scan is persisted.
type FeedEvent struct {
	Type     FeedEventType     `json:"type"`
	Scan     *model.ScanResult `json:"scan,omitempty"`
	DeepScan *model.DeepScan   `json:"deepScan,omitempty"`
}

const defaultFeedBuffer = 16

// Feed fans scan events out to subscribers. Slow subscribers drop events
// instead of blocking publishers.
type Feed struct {
	mu     sync.Mutex
	subs   map[int]chan FeedEvent
	nextID int
	closed bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan FeedEvent)}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel; it is safe to call more than once.
func (f *Feed) Subscribe() (<-chan FeedEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan FeedEvent, defaultFeedBuffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer and
// reports how many received it.
func (f *Feed) Publish(ev FeedEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for _, ch := range f.subs {
		select {
		case ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of active listeners.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close disconnects all subscribers.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
