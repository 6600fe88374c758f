// Package scheduler implements the cooperative priority-banded callback
// dispatcher of spec.md §4.3: a small number of single-threaded priority-task
// workers, each multiplexing up to four priority bands of callback records
// in circular, fairness-guaranteed order.
//
// Grounded on LibrePilot's flight/pios/common/pios_callbackscheduler.c,
// translated from the FreeRTOS task/semaphore primitives it uses to Go
// goroutines/channels, and instrumented with
// github.com/prometheus/client_golang the way PossumXI-Asgard_Arobi wires
// its own observability.
package scheduler

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Priority is a callback's priority band within a worker. Lower values run
// first; a worker exhausts PriorityCritical before ever looking at
// PriorityLow.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityRegular
	PriorityLow
	numPriorities
)

// UpdateMode controls how Schedule treats an already-pending deadline,
// matching PIOS_CALLBACKSCHEDULER_Schedule's update modes exactly.
type UpdateMode int

const (
	// ModeNone never changes an existing schedule.
	ModeNone UpdateMode = iota
	// ModeSooner reschedules only if the new deadline precedes the current one.
	ModeSooner
	// ModeLater reschedules only if the new deadline is later than the current one.
	ModeLater
	// ModeOverride always reschedules.
	ModeOverride
)

// maxSleep bounds how long a worker will block waiting for the next
// deadline, matching pios_callbackscheduler.c's MAX_SLEEP (1000 ms).
const maxSleep = 1 * time.Second

// Callback is one schedulable unit of work. It must not block beyond the
// short recursive-mutex wait Schedule itself may incur (spec.md §5).
type Callback func()

// record is one callback's scheduling state, created once at registration
// and never destroyed for the lifetime of the worker (spec.md §3).
type record struct {
	fn           Callback
	priority     Priority
	scheduleTime time.Time // zero means "not scheduled"
	waiting      bool
	runCount     uint64
	name         string
}

// Worker is a single cooperative priority-task context: one goroutine
// serving up to four priority bands of callback records in round-robin
// order, matching one CallbackSchedulerTask instance.
type Worker struct {
	name string
	log  *logrus.Entry

	mu      sync.Mutex // guards bands + cursors + each record's schedule/waiting
	bands   [numPriorities][]*record
	cursors [numPriorities]int

	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}

	latency *prometheus.HistogramVec
}

// NewWorker creates a worker that has not yet started running callbacks.
// name is used for logging and metric labels (e.g. "Critical", "High").
func NewWorker(name string, log *logrus.Entry, latency *prometheus.HistogramVec) *Worker {
	return &Worker{
		name:    name,
		log:     log.WithField("worker", name),
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		latency: latency,
	}
}

// Register adds a new callback to the worker's priority band. Registration
// is append-only — there is no unregister, matching the firmware's
// "callback records live for the process lifetime" model.
func (w *Worker) Register(name string, priority Priority, fn Callback) *record {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := &record{fn: fn, priority: priority, name: name}
	w.bands[priority] = append(w.bands[priority], r)
	return r
}

// Schedule requests that r run after at least delay has elapsed, subject to
// mode's interaction with any currently pending deadline. A delay <= 0
// becomes "1 tick" (here, 1ns) rather than "now", matching the firmware's
// "scheduling to time zero is disallowed" rule (spec.md §4.3).
func (w *Worker) Schedule(r *record, delay time.Duration, mode UpdateMode) {
	if delay <= 0 {
		delay = time.Nanosecond
	}
	w.mu.Lock()
	newTime := time.Now().Add(delay)
	switch {
	case r.scheduleTime.IsZero():
		r.scheduleTime = newTime
	case mode == ModeOverride:
		r.scheduleTime = newTime
	case mode == ModeSooner && newTime.Before(r.scheduleTime):
		r.scheduleTime = newTime
	case mode == ModeLater && newTime.After(r.scheduleTime):
		r.scheduleTime = newTime
	case mode == ModeNone:
		// never touch an existing schedule
	}
	w.mu.Unlock()
	w.wake()
}

// Dispatch marks r ready to run on the worker's very next iteration,
// regardless of any pending delayed schedule (spec.md §4.3 dispatch()).
func (w *Worker) Dispatch(r *record) {
	w.mu.Lock()
	r.waiting = true
	w.mu.Unlock()
	w.wake()
}

// DispatchFromISR is the non-blocking, allocation-free form of Dispatch
// intended for interrupt-context callers. yieldFlag is set true if this
// dispatch should cause the caller to yield to a higher-priority context
// before returning, mirroring pios_callbackscheduler.c's
// pxHigherPriorityTaskWoken out-parameter.
func (w *Worker) DispatchFromISR(r *record, yieldFlag *bool) {
	w.mu.Lock()
	wasEmpty := !r.waiting
	r.waiting = true
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
	if yieldFlag != nil {
		*yieldFlag = wasEmpty
	}
}

func (w *Worker) wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Run executes the worker's dispatch loop until Stop is called. It is meant
// to be run in its own goroutine, one per OS-thread-equivalent priority
// task.
func (w *Worker) Run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		ran, sleepFor := w.tick()
		if ran {
			continue
		}
		if sleepFor > maxSleep {
			sleepFor = maxSleep
		}
		select {
		case <-w.stop:
			return
		case <-w.signal:
		case <-time.After(sleepFor):
		}
	}
}

// Stop requests the worker's Run loop to exit and waits for it to do so.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

// tick performs exactly one dispatch iteration across all bands, from
// PriorityCritical down to PriorityLow, matching runNextCallback's
// recursive band descent. It reports whether a callback ran and, if not,
// the minimum remaining schedule time across every band.
func (w *Worker) tick() (ran bool, sleepFor time.Duration) {
	sleepFor = maxSleep
	for p := Priority(0); p < numPriorities; p++ {
		r, remaining, found := w.runFromBand(p)
		if found {
			w.invoke(r)
			return true, 0
		}
		if remaining < sleepFor {
			sleepFor = remaining
		}
	}
	return false, sleepFor
}

// runFromBand walks band p starting at its cursor, promoting any elapsed
// schedule to "waiting", and returns the first ready record found — the
// fairness guarantee of spec.md §8.4 ("no callback can be starved by
// another at the same priority while ready") falls directly out of always
// resuming from the cursor rather than the head of the band.
func (w *Worker) runFromBand(p Priority) (r *record, remaining time.Duration, found bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	band := w.bands[p]
	if len(band) == 0 {
		return nil, maxSleep, false
	}

	now := time.Now()
	remaining = maxSleep
	start := w.cursors[p]
	for i := 0; i < len(band); i++ {
		idx := (start + i) % len(band)
		rec := band[idx]
		if !rec.scheduleTime.IsZero() {
			diff := rec.scheduleTime.Sub(now)
			if diff <= 0 {
				rec.waiting = true
			} else if diff < remaining {
				remaining = diff
			}
		}
		if rec.waiting {
			w.cursors[p] = (idx + 1) % len(band)
			rec.scheduleTime = time.Time{}
			rec.waiting = false
			return rec, 0, true
		}
	}
	return nil, remaining, false
}

func (w *Worker) invoke(r *record) {
	start := time.Now()
	r.fn()
	r.runCount++
	if w.latency != nil {
		w.latency.WithLabelValues(w.name, r.name).Observe(time.Since(start).Seconds())
	}
}
