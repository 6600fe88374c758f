package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testWorker() *Worker {
	log := logrus.NewEntry(logrus.New())
	return NewWorker("test", log, nil)
}

func TestDispatchRunsRegisteredCallback(t *testing.T) {
	w := testWorker()
	var ran int32
	r := w.Register("cb", PriorityCritical, func() { atomic.AddInt32(&ran, 1) })

	go w.Run()
	defer w.Stop()

	w.Dispatch(r)
	deadline := time.After(time.Second)
	for atomic.LoadInt32(&ran) == 0 {
		select {
		case <-deadline:
			t.Fatalf("callback never ran")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestFairnessNoCallbackSkippedTwiceInARow(t *testing.T) {
	w := testWorker()
	var a, b int32
	ra := w.Register("a", PriorityHigh, func() { atomic.AddInt32(&a, 1) })
	rb := w.Register("b", PriorityHigh, func() { atomic.AddInt32(&b, 1) })

	go w.Run()
	defer w.Stop()

	w.Dispatch(ra)
	w.Dispatch(rb)

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&a) == 0 || atomic.LoadInt32(&b) == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected both callbacks to run, got a=%d b=%d", a, b)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestScheduleModeNoneNeverChangesExisting(t *testing.T) {
	w := testWorker()
	r := w.Register("cb", PriorityLow, func() {})
	w.Schedule(r, 10*time.Second, ModeOverride)
	first := r.scheduleTime

	w.Schedule(r, time.Millisecond, ModeNone)
	if !r.scheduleTime.Equal(first) {
		t.Fatalf("ModeNone must not change an existing schedule")
	}
}

func TestScheduleModeSoonerOnlyMovesEarlier(t *testing.T) {
	w := testWorker()
	r := w.Register("cb", PriorityLow, func() {})
	w.Schedule(r, 100*time.Millisecond, ModeOverride)
	first := r.scheduleTime

	// later deadline: Sooner must reject it
	w.Schedule(r, time.Second, ModeSooner)
	if !r.scheduleTime.Equal(first) {
		t.Fatalf("ModeSooner must not move deadline later")
	}

	// earlier deadline: Sooner must accept it
	w.Schedule(r, time.Millisecond, ModeSooner)
	if !r.scheduleTime.Before(first) {
		t.Fatalf("ModeSooner must move deadline earlier when the new one precedes it")
	}
}

func TestScheduleModeOverrideAlwaysReschedules(t *testing.T) {
	w := testWorker()
	r := w.Register("cb", PriorityLow, func() {})
	w.Schedule(r, time.Second, ModeOverride)
	first := r.scheduleTime

	w.Schedule(r, 10*time.Second, ModeOverride)
	if r.scheduleTime.Equal(first) {
		t.Fatalf("ModeOverride must always reschedule")
	}
}

func TestScheduleZeroDelayBecomesOneTick(t *testing.T) {
	w := testWorker()
	r := w.Register("cb", PriorityLow, func() {})
	w.Schedule(r, 0, ModeOverride)
	if r.scheduleTime.IsZero() {
		t.Fatalf("zero-delay schedule must still set a schedule time")
	}
}
