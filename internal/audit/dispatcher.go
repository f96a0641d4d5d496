package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher hands events to a sink from one background goroutine. Sinks
// therefore never see concurrent Emit calls from a Dispatcher.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// gate guards queue against sends after close. Emit holds it shared,
	// Close holds it exclusively while closing queue.
	gate     sync.RWMutex
	shut     bool
	queue    chan Event
	stopping chan struct{}
	finished chan struct{}

	once      sync.Once
	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled. A
// nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
		stopping:   make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.finished)
	for ev := range d.queue {
		d.sink.Emit(context.Background(), ev)
		d.delivered.Add(1)
	}
}

// Emit queues event. With DropIfFull a full buffer drops and counts the
// event; otherwise Emit blocks until there is room or ctx is done. Events
// emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.shut {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stopping:
		d.dropped.Add(1)
	}
}

// Close stops intake, wakes blocked emitters, and waits until every queued
// event has reached the sink. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		close(d.stopping)

		d.gate.Lock()
		d.shut = true
		close(d.queue)
		d.gate.Unlock()

		<-d.finished
	})
}

// Dropped returns the number of events discarded under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns the number of events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
