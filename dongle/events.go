package dongle

import (
	"sync"

	"github.com/alexpevzner/carplaydongled/protocol"
)

// MessageSink receives every inbound message the read task decodes.
type MessageSink func(protocol.Message)

// FailureSink is invoked once, when the error ceiling closes the session.
type FailureSink func()

type messageSinkEntry struct {
	id   uint64
	sink MessageSink
}

type failureSinkEntry struct {
	id   uint64
	sink FailureSink
}

// dispatcher fans out decoded messages and the failure event to
// caller-registered sinks, invoked synchronously in registration order on
// the emitting task's goroutine (spec.md §4.4). Sinks are kept in
// registration-order slices, each entry tagged with the id handed back at
// registration — Go functions aren't comparable, so removal is keyed by
// that id rather than by the sink value itself, the Go analogue of the
// original EventEmitter's remove_listener, which keys off the listener
// reference directly. The slice is snapshotted under lock before each
// dispatch so a sink removing itself (or another) mid-dispatch can't
// corrupt the iteration.
type dispatcher struct {
	mu           sync.Mutex
	nextID       uint64
	messageSinks []messageSinkEntry
	failureSinks []failureSinkEntry
}

// OnMessage registers a sink invoked for every decoded inbound message, in
// registration order. The returned func removes it; calling it more than
// once is a no-op.
func (d *dispatcher) OnMessage(sink MessageSink) (cancel func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.messageSinks = append(d.messageSinks, messageSinkEntry{id, sink})
	d.mu.Unlock()

	return func() { d.removeMessageSink(id) }
}

// OnFailure registers a sink invoked once when the session closes itself
// after reaching the error ceiling, in registration order. The returned
// func removes it; calling it more than once is a no-op.
func (d *dispatcher) OnFailure(sink FailureSink) (cancel func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.failureSinks = append(d.failureSinks, failureSinkEntry{id, sink})
	d.mu.Unlock()

	return func() { d.removeFailureSink(id) }
}

func (d *dispatcher) removeMessageSink(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.messageSinks {
		if e.id == id {
			d.messageSinks = append(d.messageSinks[:i], d.messageSinks[i+1:]...)
			return
		}
	}
}

func (d *dispatcher) removeFailureSink(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.failureSinks {
		if e.id == id {
			d.failureSinks = append(d.failureSinks[:i], d.failureSinks[i+1:]...)
			return
		}
	}
}

func (d *dispatcher) emitMessage(msg protocol.Message) {
	d.mu.Lock()
	snapshot := make([]MessageSink, len(d.messageSinks))
	for i, e := range d.messageSinks {
		snapshot[i] = e.sink
	}
	d.mu.Unlock()

	for _, sink := range snapshot {
		sink(msg)
	}
}

func (d *dispatcher) emitFailure() {
	d.mu.Lock()
	snapshot := make([]FailureSink, len(d.failureSinks))
	for i, e := range d.failureSinks {
		snapshot[i] = e.sink
	}
	d.mu.Unlock()

	for _, sink := range snapshot {
		sink()
	}
}
