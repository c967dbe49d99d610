// SPDX-License-Identifier: MIT
package broadcast

import (
	"fmt"
	"sync"
	"time"

	applog "audiomon/internal/log"
)

// DefaultReportInterval is used when NewReporter receives a non-positive
// interval.
const DefaultReportInterval = 10 * time.Second

// StatusSource is what a Reporter inspects on every tick.
type StatusSource interface {
	AcceptPending() int
	Stats() Stats
}

// Reporter periodically accepts pending connections and logs broadcaster
// status, so new readers are admitted even while no audio is flowing.
// It runs in a separate goroutine managed by Start and Stop.
type Reporter struct {
	source   StatusSource
	interval time.Duration
	extra    func() string // optional, appended to each status line
	log      *applog.Logger

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop

	last Stats
}

// NewReporter creates a reporter for source. extra, when non-nil, supplies
// additional text for every status line (for example engine counters).
func NewReporter(interval time.Duration, source StatusSource, extra func() string) (*Reporter, error) {
	if source == nil {
		return nil, fmt.Errorf("reporter: status source cannot be nil")
	}

	r := &Reporter{
		source:   source,
		interval: interval,
		extra:    extra,
		log:      applog.New("reporter"),
	}
	if r.interval <= 0 {
		r.interval = DefaultReportInterval
		r.log.Warnf("invalid interval, defaulting to %s", r.interval)
	}
	return r, nil
}

// Start launches the reporting goroutine. Calling Start on a running
// reporter is a no-op.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.ticker != nil {
		r.mu.Unlock()
		r.log.Warnf("Start called but already running")
		return
	}

	r.ticker = time.NewTicker(r.interval)
	r.doneChan = make(chan struct{})
	r.stopOnce = sync.Once{}

	ticker := r.ticker
	doneChan := r.doneChan
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.log.Debugf("started (interval %s)", r.interval)
		for {
			select {
			case <-ticker.C:
				r.report()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. It is safe to call
// more than once.
func (r *Reporter) Stop() error {
	r.mu.Lock()
	if r.ticker == nil {
		r.mu.Unlock()
		return nil
	}
	r.stopOnce.Do(func() {
		close(r.doneChan)
		r.ticker.Stop()
		r.ticker = nil
	})
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Debugf("stopped")
	return nil
}

// Close implements io.Closer.
func (r *Reporter) Close() error {
	return r.Stop()
}

// report runs one tick. Unchanged status is logged at DEBUG only.
func (r *Reporter) report() {
	r.source.AcceptPending()
	s := r.source.Stats()

	line := fmt.Sprintf("clients=%d published=%d dropped=%d", s.Clients, s.Published, s.Dropped)
	if r.extra != nil {
		line += " " + r.extra()
	}

	if s.Clients != r.last.Clients || s.Dropped != r.last.Dropped {
		r.log.Infof("%s", line)
	} else {
		r.log.Debugf("%s", line)
	}
	r.last = s
}

var _ interface{ Close() error } = (*Reporter)(nil)

var _ StatusSource = (*Manager)(nil)
