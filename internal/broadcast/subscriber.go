// SPDX-License-Identifier: MIT
package broadcast

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// subscriber is one connected reader. Records reach it through a bounded
// queue drained by its own writer goroutine, so a slow reader only delays
// itself.
type subscriber struct {
	id      uint64
	conn    net.Conn
	queue   chan []byte
	done    chan struct{}
	flush   chan struct{}  // closed by shutdown
	dropped *atomic.Uint64 // shared with the Manager

	closeOnce    sync.Once
	shutdownOnce sync.Once
}

func newSubscriber(id uint64, conn net.Conn, depth int, dropped *atomic.Uint64) *subscriber {
	return &subscriber{
		id:      id,
		conn:    conn,
		queue:   make(chan []byte, depth),
		done:    make(chan struct{}),
		flush:   make(chan struct{}),
		dropped: dropped,
	}
}

// enqueue hands record to the writer without blocking. When the queue is
// full the oldest pending record is discarded to make room.
func (s *subscriber) enqueue(record []byte) {
	select {
	case s.queue <- record:
		return
	default:
	}

	select {
	case <-s.queue:
		s.dropped.Add(1)
	default:
	}

	select {
	case s.queue <- record:
	default:
		s.dropped.Add(1)
	}
}

// writeLoop delivers queued records until the subscriber is closed or a write
// fails. fail is called at most once, from this goroutine. After shutdown the
// records still queued are written under one shared deadline and the
// connection is closed.
func (s *subscriber) writeLoop(timeout time.Duration, fail func(*subscriber, error)) {
	for {
		select {
		case <-s.done:
			return
		case <-s.flush:
			s.drain(timeout, nil)
			return
		case record := <-s.queue:
			select {
			case <-s.flush:
				s.drain(timeout, record)
				return
			default:
			}
			if timeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
			}
			if _, err := s.conn.Write(record); err != nil {
				fail(s, err)
				return
			}
		}
	}
}

// drain writes first, if any, and then everything queued, all under one
// deadline, and closes the connection.
func (s *subscriber) drain(timeout time.Duration, first []byte) {
	defer s.close()
	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if first != nil {
		if _, err := s.conn.Write(first); err != nil {
			return
		}
	}
	for {
		select {
		case record := <-s.queue:
			if _, err := s.conn.Write(record); err != nil {
				return
			}
		default:
			return
		}
	}
}

// shutdown asks the writer to flush and close. It does not wait.
func (s *subscriber) shutdown() {
	s.shutdownOnce.Do(func() { close(s.flush) })
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
