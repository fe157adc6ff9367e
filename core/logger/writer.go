package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueLen = 512
	// enqueueWait bounds how long a request goroutine may block on a full queue.
	enqueueWait = 50 * time.Millisecond
)

// asyncWriter fans log lines out to sinks from a single goroutine. Lines that
// cannot be queued within enqueueWait are dropped and counted.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once
	sinks    []*bufio.Writer
	dropped  atomic.Uint64
	errMu    sync.Mutex
	writeErr error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
		}
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, defaultQueueLen),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    sinks,
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.setErr(w.flushAll())
				return
			}
			w.write(data)
			// Drain whatever is already queued before paying for a flush.
			for drained := false; !drained; {
				select {
				case more, ok := <-w.queue:
					if !ok {
						w.setErr(w.flushAll())
						return
					}
					w.write(more)
				default:
					drained = true
				}
			}
			w.setErr(w.flushAll())
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write queues a copy of p.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	data := append([]byte(nil), p...)
	select {
	case w.queue <- data:
		return nil
	default:
	}
	timer := time.NewTimer(enqueueWait)
	defer timer.Stop()
	select {
	case w.queue <- data:
	case <-timer.C:
		w.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many lines were discarded on a saturated queue.
func (w *asyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Flush blocks until queued lines reach the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.getErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return <-ack
	case <-w.done:
		return w.getErr()
	}
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done
	if n := w.dropped.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "logger: dropped %d lines on a full queue\n", n)
	}
	return w.getErr()
}

func (w *asyncWriter) write(p []byte) {
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			w.setErr(err)
			return
		}
	}
}

func (w *asyncWriter) flushAll() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
