package app

import (
	"testing"

	"github.com/raysh454/trygglink/internal/model"
)

func TestFeed_PublishSubscribe(t *testing.T) {
	t.Parallel()
	f := NewFeed()
	a, cancelA := f.Subscribe()
	b, cancelB := f.Subscribe()
	defer cancelB()

	if n := f.Publish(FeedEvent{Type: FeedScanCompleted, Scan: &model.ScanResult{ID: "1"}}); n != 2 {
		t.Errorf("delivered = %d, want 2", n)
	}
	if ev := <-a; ev.Scan.ID != "1" {
		t.Errorf("a got %+v", ev)
	}
	if ev := <-b; ev.Scan.ID != "1" {
		t.Errorf("b got %+v", ev)
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if f.Subscribers() != 1 {
		t.Errorf("subscribers = %d, want 1", f.Subscribers())
	}
}

func TestFeed_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()
	f := NewFeed()
	_, cancel := f.Subscribe()
	defer cancel()

	for i := 0; i < defaultFeedBuffer; i++ {
		f.Publish(FeedEvent{Type: FeedScanCompleted})
	}
	if n := f.Publish(FeedEvent{Type: FeedScanCompleted}); n != 0 {
		t.Errorf("full subscriber should be skipped, delivered = %d", n)
	}
}

func TestFeed_Close(t *testing.T) {
	t.Parallel()
	f := NewFeed()
	ch, cancel := f.Subscribe()

	f.Close()
	if _, ok := <-ch; ok {
		t.Error("close should disconnect subscribers")
	}
	cancel()

	late, _ := f.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after close should yield a closed channel")
	}
	if n := f.Publish(FeedEvent{}); n != 0 {
		t.Errorf("delivered = %d after close", n)
	}
}
