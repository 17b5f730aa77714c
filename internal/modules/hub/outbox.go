package hub

import "sync"

const defaultOutboxSize = 64

// outbox is the bounded per-connection outbound queue. Producers never
// block: when the queue is full the oldest event is dropped so one slow
// consumer cannot stall fanout to others.
type outbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []Event
	cap     int
	closed  bool
	dropped uint64
}

func newOutbox(capacity int) *outbox {
	if capacity <= 0 {
		capacity = defaultOutboxSize
	}
	o := &outbox{cap: capacity}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// push enqueues ev without blocking. Returns false when the outbox is
// already closed.
func (o *outbox) push(ev Event) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	if len(o.buf) >= o.cap {
		o.buf = o.buf[1:]
		o.dropped++
	}
	o.buf = append(o.buf, ev)
	o.cond.Signal()
	return true
}

// run drains the queue into sink until close. Meant to be the connection's
// writer goroutine; events reach sink in push order.
func (o *outbox) run(sink func(Event)) {
	for {
		o.mu.Lock()
		for len(o.buf) == 0 && !o.closed {
			o.cond.Wait()
		}
		if len(o.buf) == 0 && o.closed {
			o.mu.Unlock()
			return
		}
		ev := o.buf[0]
		o.buf = o.buf[1:]
		o.mu.Unlock()

		sink(ev)
	}
}

// close stops the writer after the remaining events are drained. Idempotent.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()
}

func (o *outbox) droppedCount() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
