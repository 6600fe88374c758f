// Package bus implements the typed message bus of spec.md §3/§4.2: named
// whole-object records with atomic set/get, callback notification, and
// bounded lossy queues.
//
// Grounded on CameronSima-CAMSim's fcs_property_manager.go PropertyManager
// (mutex-protected map, per-key listener lists) generalized from a flat
// float64 property tree to the UAVObject-style typed-whole-object contract
// spec.md §9 calls out as the redesign target: "replace with a typed
// event-bus: one channel per record type; subscribers hold handles obtained
// at init."
package bus

import "sync"

// Callback is notified when an object changes. Per spec.md §4.2 it "must
// not block" — callers should keep these short and non-blocking.
type Callback func(name string, value any)

// Queue receives a copy of every update to the object it is connected to.
// Post must not block; Bus enforces the depth limit itself.
type Queue struct {
	mu     sync.Mutex
	depth  int
	values []any
}

// NewQueue returns a queue that holds at most depth values, dropping the
// oldest on overflow (spec.md §4.2 "Queue posts are lossless up to the
// configured depth; overflow drops the oldest").
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = 1
	}
	return &Queue{depth: depth}
}

func (q *Queue) post(v any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.values = append(q.values, v)
	if len(q.values) > q.depth {
		q.values = q.values[len(q.values)-q.depth:]
	}
}

// Drain removes and returns every value currently queued, oldest first.
func (q *Queue) Drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.values
	q.values = nil
	return out
}

// object is one named bus record: a value box plus its subscribers.
type object struct {
	mu        sync.RWMutex
	value     any
	readOnly  bool
	callbacks []Callback
	queues    []*Queue
}

// Bus is the process-wide registry of named objects. Every record is
// created once at init and never destroyed (spec.md §3).
type Bus struct {
	mu      sync.RWMutex
	objects map[string]*object
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{objects: make(map[string]*object)}
}

// Register creates a new named object with an initial value. Registering
// the same name twice is a programmer error and panics, matching the
// firmware's "UAVObjects are created once at init" invariant.
func (b *Bus) Register(name string, initial any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.objects[name]; exists {
		panic("bus: object already registered: " + name)
	}
	b.objects[name] = &object{value: initial}
}

// SetReadOnly marks name read-only: Set on it panics, matching the
// per-field read-only flag of spec.md §3. Used for objects only the owning
// subsystem may write (e.g. SystemAlarms written only by its owner, read by
// everyone else).
func (b *Bus) SetReadOnly(name string, readOnly bool) {
	o := b.must(name)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.readOnly = readOnly
}

func (b *Bus) must(name string) *object {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.objects[name]
	if !ok {
		panic("bus: unknown object: " + name)
	}
	return o
}

// Get returns the current snapshot value of name. A Get always observes
// either the whole value from before the most recent Set or the whole
// value after it — never a partial write (spec.md §4.2).
func (b *Bus) Get(name string) any {
	o := b.must(name)
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set atomically replaces name's value and fires its callbacks and queue
// posts (UpdateNotify). Panics if name is read-only.
func (b *Bus) Set(name string, value any) {
	o := b.must(name)
	o.mu.Lock()
	if o.readOnly {
		o.mu.Unlock()
		panic("bus: write to read-only object: " + name)
	}
	o.value = value
	cbs := append([]Callback(nil), o.callbacks...)
	qs := append([]*Queue(nil), o.queues...)
	o.mu.Unlock()

	for _, q := range qs {
		q.post(value)
	}
	for _, cb := range cbs {
		cb(name, value)
	}
}

// ConnectCallback registers fn to run whenever name is updated.
func (b *Bus) ConnectCallback(name string, fn Callback) {
	o := b.must(name)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, fn)
}

// ConnectQueue registers q to receive every future update to name.
func (b *Bus) ConnectQueue(name string, q *Queue) {
	o := b.must(name)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queues = append(o.queues, q)
}

// UpdateNotify re-fires name's callbacks and queue posts against its
// current value without changing it — used when a caller mutated a copy
// in place and wants to publish without a logical value change (spec.md
// §3's "Updates are whole-object-at-a-time; partial updates are caller's
// responsibility").
func (b *Bus) UpdateNotify(name string) {
	o := b.must(name)
	o.mu.RLock()
	value := o.value
	cbs := append([]Callback(nil), o.callbacks...)
	qs := append([]*Queue(nil), o.queues...)
	o.mu.RUnlock()

	for _, q := range qs {
		q.post(value)
	}
	for _, cb := range cbs {
		cb(name, value)
	}
}
