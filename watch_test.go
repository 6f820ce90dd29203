package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleSettle_FiresAfterDelay(t *testing.T) {
	t.Parallel()

	pending := make(map[string]*time.Timer)
	ready := make(chan string, 1)

	scheduleSettle(pending, ready, "/tmp/file.bin")
	assert.Len(t, pending, 1)

	select {
	case name := <-ready:
		assert.Equal(t, "/tmp/file.bin", name)
	case <-time.After(settleDelay + time.Second):
		t.Fatal("settle timer did not fire")
	}
}

func TestScheduleSettle_RestartCoalesces(t *testing.T) {
	t.Parallel()

	pending := make(map[string]*time.Timer)
	ready := make(chan string, 2)

	scheduleSettle(pending, ready, "/tmp/file.bin")
	firstTimer := pending["/tmp/file.bin"]

	scheduleSettle(pending, ready, "/tmp/file.bin")

	assert.Len(t, pending, 1)
	assert.NotSame(t, firstTimer, pending["/tmp/file.bin"])

	select {
	case <-ready:
	case <-time.After(settleDelay + time.Second):
		t.Fatal("settle timer did not fire after coalesce")
	}

	select {
	case <-ready:
		t.Fatal("only one settle event expected after coalescing")
	case <-time.After(200 * time.Millisecond):
	}
}
