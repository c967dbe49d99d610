// SPDX-License-Identifier: MIT
/*
Package broadcast fans analysis records out to every reader connected to a
local socket.

Data flow:
  - the audio callback calls Publish, a non-blocking latest-wins handoff
  - Run drains the handoff, formats the record and calls Broadcast
  - Broadcast accepts pending connections, then queues the record to every
    subscriber in connection order
  - each subscriber's writer goroutine performs the socket write under a
    deadline; the first failed write removes that subscriber
  - on shutdown Run broadcasts a result still waiting in the handoff, and
    Close lets every writer flush its queue within one write timeout

Thread Safety:
  - one mutex guards the subscriber set across accept, broadcast and
    reporting
  - Publish never takes the mutex and never blocks
*/
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"audiomon/internal/analysis"
	applog "audiomon/internal/log"
)

// Defaults applied by NewManager to zero Options fields.
const (
	DefaultClientBuffer = 8
	DefaultWriteTimeout = 250 * time.Millisecond

	acceptBacklog = 64
)

// Options tune a Manager.
type Options struct {
	Precision    int           // Decimals per record field; negative selects DefaultPrecision.
	ClientBuffer int           // Records queued per subscriber before the oldest is dropped.
	WriteTimeout time.Duration // Upper bound on one socket write.
}

func (o Options) withDefaults() Options {
	if o.ClientBuffer <= 0 {
		o.ClientBuffer = DefaultClientBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.Precision < 0 {
		o.Precision = DefaultPrecision
	}
	return o
}

// Stats is a snapshot of broadcaster counters.
type Stats struct {
	Clients   int
	Published uint64 // Records handed to Broadcast.
	Dropped   uint64 // Records replaced in the handoff or evicted from a client queue.
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// Manager owns the listening endpoint and the subscriber set.
type Manager struct {
	opts     Options
	listener net.Listener
	log      *applog.Logger

	incoming chan acceptResult
	pending  chan analysis.Result

	mu     sync.Mutex
	subs   []*subscriber
	nextID uint64
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64

	acceptWG sync.WaitGroup
	subWG    sync.WaitGroup
}

// Listen removes any stale socket at path, binds a unix socket there and
// returns a Manager serving it.
func Listen(path string, opts Options) (*Manager, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return NewManager(l, opts), nil
}

// NewManager serves subscribers accepted from l. The Manager owns l and
// closes it on Close.
func NewManager(l net.Listener, opts Options) *Manager {
	m := &Manager{
		opts:     opts.withDefaults(),
		listener: l,
		log:      applog.New("broadcast"),
		incoming: make(chan acceptResult, acceptBacklog),
		pending:  make(chan analysis.Result, 1),
	}
	m.log.Infof("listening on %s (client buffer %d, write timeout %s)",
		l.Addr(), m.opts.ClientBuffer, m.opts.WriteTimeout)

	m.acceptWG.Add(1)
	go m.acceptLoop()
	return m
}

// Addr returns the listening address.
func (m *Manager) Addr() net.Addr {
	return m.listener.Addr()
}

// acceptLoop moves connections from the listener into incoming so that
// AcceptPending never blocks on the listener itself.
func (m *Manager) acceptLoop() {
	defer m.acceptWG.Done()

	var backoff time.Duration
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			m.incoming <- acceptResult{err: err}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, time.Second)
			}
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		m.incoming <- acceptResult{conn: conn}
	}
}

// AcceptPending adds every connection accepted since the last call to the
// subscriber set and returns how many were added. It never blocks. An accept
// error is logged and ends the cycle.
func (m *Manager) AcceptPending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acceptPendingLocked()
}

func (m *Manager) acceptPendingLocked() int {
	if m.closed {
		return 0
	}

	added := 0
	for {
		select {
		case r := <-m.incoming:
			if r.err != nil {
				m.log.Errorf("accept failed: %v", r.err)
				return added
			}
			m.addLocked(r.conn)
			added++
		default:
			return added
		}
	}
}

func (m *Manager) addLocked(conn net.Conn) {
	m.nextID++
	s := newSubscriber(m.nextID, conn, m.opts.ClientBuffer, &m.dropped)
	m.subs = append(m.subs, s)

	m.subWG.Add(1)
	go func() {
		defer m.subWG.Done()
		s.writeLoop(m.opts.WriteTimeout, m.fail)
	}()

	m.log.Infof("client %d connected (total clients: %d)", s.id, len(m.subs))
}

// fail removes s after a write error. Disconnects are routine and logged at
// INFO.
func (m *Manager) fail(s *subscriber, err error) {
	m.mu.Lock()
	i := slices.Index(m.subs, s)
	if i >= 0 {
		m.subs = slices.Delete(m.subs, i, i+1)
	}
	count := len(m.subs)
	m.mu.Unlock()

	s.close()
	if i >= 0 {
		m.log.Infof("client %d disconnected: %v (total clients: %d)", s.id, err, count)
	}
}

// Broadcast accepts pending connections and queues record to every
// subscriber in connection order. record must not be modified afterwards.
// It returns the number of subscribers the record was queued to.
func (m *Manager) Broadcast(record []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	m.acceptPendingLocked()

	for _, s := range m.subs {
		s.enqueue(record)
	}
	m.published.Add(1)
	return len(m.subs), nil
}

// ClientCount returns the number of live subscribers.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Clients:   m.ClientCount(),
		Published: m.published.Load(),
		Dropped:   m.dropped.Load(),
	}
}

// Publish hands res to Run without blocking. If a previous result is still
// waiting it is replaced, so Run always formats the newest data. res.Bands
// must not be modified after the call.
//
// Publish is safe to call from the audio callback.
func (m *Manager) Publish(res analysis.Result) {
	select {
	case m.pending <- res:
		return
	default:
	}

	select {
	case <-m.pending:
		m.dropped.Add(1)
	default:
	}

	select {
	case m.pending <- res:
	default:
		m.dropped.Add(1)
	}
}

// Run drains published results and broadcasts them until ctx is done. A
// result published before cancellation is still broadcast.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case res := <-m.pending:
				if err := m.send(res); err != nil && !errors.Is(err, ErrClosed) {
					return err
				}
			default:
			}
			return nil
		case res := <-m.pending:
			if err := m.send(res); err != nil {
				return err
			}
		}
	}
}

func (m *Manager) send(res analysis.Result) error {
	record := AppendRecord(make([]byte, 0, 8*(len(res.Bands)+1)), res, m.opts.Precision)
	_, err := m.Broadcast(record)
	return err
}

// Close stops accepting, writes out what each subscriber still has queued,
// disconnects it and removes the socket. The flush runs under the write
// timeout. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	err := m.listener.Close()
	for _, s := range subs {
		s.shutdown()
	}

	// Unblock acceptLoop if it is parked on a full incoming channel.
	go func() {
		for r := range m.incoming {
			if r.conn != nil {
				_ = r.conn.Close()
			}
		}
	}()
	m.acceptWG.Wait()
	close(m.incoming)
	m.subWG.Wait()

	m.log.Infof("closed, %d clients disconnected", len(subs))
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}
