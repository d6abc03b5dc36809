package events_test

import (
	"testing"

	"github.com/ardanlabs/register/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New[string]()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("two")

	if evts.Len() != 2 {
		t.Fatalf("Should have 2 subscribers, got %d.", evts.Len())
	}

	if again := evts.Acquire("one"); again != ch1 {
		t.Fatalf("Should get back the same channel for the same id.")
	}

	evts.Send("registered")

	for i, ch := range []<-chan string{ch1, ch2} {
		if msg := <-ch; msg != "registered" {
			t.Logf("got: %s", msg)
			t.Logf("exp: %s", "registered")
			t.Fatalf("Should receive the event on channel %d.", i)
		}
	}

	if err := evts.Release("one"); err != nil {
		t.Fatalf("Should be able to release a subscriber: %s", err)
	}
	if _, open := <-ch1; open {
		t.Fatalf("Should have a closed channel after release.")
	}
	if err := evts.Release("one"); err == nil {
		t.Fatalf("Should not be able to release twice.")
	}

	evts.Shutdown()
	if _, open := <-ch2; open {
		t.Fatalf("Should have a closed channel after shutdown.")
	}
	if evts.Len() != 0 {
		t.Fatalf("Should have no subscribers after shutdown.")
	}
}

func Test_SendDoesNotBlock(t *testing.T) {
	evts := events.New[int]()
	ch := evts.Acquire("slow")

	for i := 0; i < 1000; i++ {
		evts.Send(i)
	}

	if len(ch) == 0 {
		t.Fatalf("Should have buffered events for the subscriber.")
	}
}
