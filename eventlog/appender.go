package eventlog

import (
	"fmt"
	"os"
	"sync"
)

// ErrAppenderClosed is returned by Append once the Appender has been
// closed.
var ErrAppenderClosed = os.ErrClosed

// Appender serializes concurrent callers through a single background
// goroutine that owns the only call path into EventFile.Append,
// adapted from the teacher's wal_writer.go request/response-channel
// loop. EventFile.Append itself is not goroutine-safe; Appender is the
// supported way to call it from more than one goroutine.
type Appender struct {
	mu     sync.Mutex
	ch     chan *appendRequest
	done   chan struct{}
	closed bool
	ef     *EventFile
	wg     sync.WaitGroup
}

type appendRequest struct {
	event []byte
	done  chan error
}

// NewAppender starts the background goroutine, buffering up to buffer
// pending requests before Append blocks its caller.
func NewAppender(ef *EventFile, buffer int) *Appender {
	a := &Appender{
		ch:   make(chan *appendRequest, buffer),
		done: make(chan struct{}),
		ef:   ef,
	}
	go a.loop()
	return a
}

// Append enqueues event and blocks until EventFile.Append has returned
// for it; no Flush is issued per event. Safe to call from multiple
// goroutines.
func (a *Appender) Append(event []byte) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAppenderClosed
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	req := &appendRequest{event: event, done: make(chan error, 1)}
	select {
	case a.ch <- req:
		return <-req.done
	case <-a.done:
		return ErrAppenderClosed
	}
}

// Close drains in-flight requests and stops the background goroutine.
func (a *Appender) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.wg.Wait()
	close(a.ch)
	<-a.done
	return a.ef.Close()
}

func (a *Appender) loop() {
	defer close(a.done)

	for req := range a.ch {
		err := a.ef.Append(req.event)
		if err != nil {
			fmt.Fprintf(os.Stderr, "eventlog: append failed: %v\n", err)
		}
		req.done <- err
	}
}
