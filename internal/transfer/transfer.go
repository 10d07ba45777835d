package transfer

import (
	"errors"
	"io"
	"log"
)

// ErrAborted is reported to the OnDone subscriber when the transfer is torn
// down externally before the source is exhausted.
var ErrAborted = errors.New("transfer aborted")

// Sink receives the pumped bytes. A Write call queues up to len(p) bytes and
// reports how many were taken; the pump doesn't issue the next Write until the
// owner signals the previous one was flushed via Drained. That signal is the
// backpressure mechanism bounding unflushed output at the socket layer.
type Sink interface {
	Write(p []byte) (n int, err error)
}

// Transfer pumps a readable source into a sink through a fixed-capacity buffer.
// The unconsumed window is [begin, end): reading from the source only happens
// when the window is empty, writing only when it is not and the sink confirmed
// readiness. The source is owned exclusively and is closed on teardown; the
// sink is only borrowed.
type Transfer struct {
	buf        []byte
	begin, end int
	src        io.ReadCloser
	sink       Sink
	writeReady bool
	srcEOF     bool
	needsPull  bool
	done       bool
	err        error
	onDone     func(err error)
}

// New starts a transfer over the given buffer and immediately attempts the
// first pull, so by the time it returns the first chunk may already have been
// offered to the sink.
func New(src io.ReadCloser, sink Sink, buf []byte) *Transfer {
	t := &Transfer{
		buf:        buf,
		src:        src,
		sink:       sink,
		writeReady: true,
	}
	t.pull()

	return t
}

// OnDone subscribes to the teardown event. The callback is invoked exactly
// once: with nil when the source was exhausted and fully drained into the sink,
// with the causing error otherwise. No subscription outlives the teardown.
func (t *Transfer) OnDone(fn func(err error)) {
	if t.done {
		fn(t.err)
		return
	}

	t.onDone = fn
}

// Done reports whether the transfer has reached its terminal state. The owner
// observes it and frees the entry; the transfer never removes itself.
func (t *Transfer) Done() bool {
	return t.done
}

// Drained is the sink's flush notification: previously queued bytes reached
// the transport, so the next write may be issued.
func (t *Transfer) Drained() {
	if t.done {
		return
	}

	t.writeReady = true

	if t.needsPull && t.begin == t.end {
		t.needsPull = false
		t.pull()
		return
	}

	t.push()
}

// Run drives the pump until teardown. Intended for blocking sinks, where every
// completed Write call means the bytes were handed to the transport, hence the
// drained notification between iterations.
func (t *Transfer) Run() {
	for !t.done {
		t.Drained()

		if !t.done && t.begin == t.end {
			t.pull()
		}
	}
}

// Close tears the transfer down before the source is exhausted. Destroying
// either side of an in-flight transfer must not leak the buffer nor leave a
// dangling subscription, so teardown is idempotent.
func (t *Transfer) Close() {
	t.finish(ErrAborted)
}

func (t *Transfer) pull() {
	if t.done || t.begin != t.end {
		// either nothing to read into, or nowhere: the window must be fully
		// consumed before the source is touched again
		return
	}

	n, err := t.src.Read(t.buf)
	t.begin, t.end = 0, n

	if n > 0 {
		t.push()
	}

	switch err {
	case nil:
	case io.EOF:
		t.srcEOF = true
		if t.begin == t.end {
			t.finish(nil)
		}
	default:
		log.Printf("ember: error reading chunk: %v", err)
		// degraded termination: the status line is already on the wire, so
		// there is no way to report the failure in-band anymore
		t.end = t.begin
		t.finish(err)
	}
}

func (t *Transfer) push() {
	if t.done || t.begin == t.end || !t.writeReady {
		return
	}

	t.writeReady = false
	n, err := t.sink.Write(t.buf[t.begin:t.end])
	if err != nil {
		log.Printf("ember: error writing chunk: %v", err)
		// the sink is gone, which cascades to releasing the source
		t.finish(err)
		return
	}

	t.begin += n
	if t.begin == t.end {
		if t.srcEOF {
			t.finish(nil)
		} else {
			// the source may have more right away, but pulling synchronously
			// here could recurse without bounds on a fast source
			t.needsPull = true
		}
	}
}

func (t *Transfer) finish(err error) {
	if t.done {
		return
	}

	t.done = true
	t.err = err
	_ = t.src.Close()
	t.buf = nil
	t.begin, t.end = 0, 0

	if t.onDone != nil {
		fn := t.onDone
		t.onDone = nil
		fn(err)
	}
}
