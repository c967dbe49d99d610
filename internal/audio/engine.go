// SPDX-License-Identifier: MIT
/*
Package audio feeds mono sample blocks from a capture device or a file into
the analyzer and hands every result to a publisher.

  - CaptureSource: PortAudio float32 input, one block per callback
  - FileSource: WAV, MP3 or Ogg Vorbis decoded and cut into blocks
  - Engine: the block handler that runs analysis on the source's goroutine

Thread Safety:
  - Engine.Process runs on the audio callback thread; it performs no I/O
    and its only allocation is the per-block Result
  - counters are atomic and may be read from any goroutine
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"audiomon/internal/analysis"
	applog "audiomon/internal/log"
)

// Publisher receives completed analysis results. Publish is called on the
// audio thread and must not block.
type Publisher interface {
	Publish(res analysis.Result)
}

// Stats counts blocks seen by an Engine.
type Stats struct {
	Processed     uint64
	SkippedLength uint64 // Blocks whose length differs from the configured one.
	SkippedRate   uint64 // Blocks delivered at the wrong sample rate.
}

// Engine runs the analyzer on every block a Source delivers.
type Engine struct {
	analyzer  *analysis.Analyzer
	publisher Publisher
	log       *applog.Logger

	processed     atomic.Uint64
	skippedLength atomic.Uint64
	skippedRate   atomic.Uint64
}

// NewEngine wires analyzer output to publisher.
func NewEngine(analyzer *analysis.Analyzer, publisher Publisher) (*Engine, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("engine: analyzer cannot be nil")
	}
	if publisher == nil {
		return nil, fmt.Errorf("engine: publisher cannot be nil")
	}
	return &Engine{
		analyzer:  analyzer,
		publisher: publisher,
		log:       applog.New("engine"),
	}, nil
}

// Run drives src until it finishes or ctx is done.
func (e *Engine) Run(ctx context.Context, src Source) error {
	return src.Run(ctx, e.Process)
}

// Process is the BlockHandler. Blocks that violate the configured length or
// sample rate are skipped and counted; nothing is published for them.
func (e *Engine) Process(samples []float32, sampleRate float64) {
	res, err := e.analyzer.Analyze(samples, sampleRate)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrBlockLength):
			e.skippedLength.Add(1)
		case errors.Is(err, analysis.ErrSampleRate):
			e.skippedRate.Add(1)
		}
		if applog.GetLevel() <= applog.LevelDebug {
			e.log.Debugf("skipped block: %v", err)
		}
		return
	}

	e.publisher.Publish(res)
	e.processed.Add(1)
}

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Processed:     e.processed.Load(),
		SkippedLength: e.skippedLength.Load(),
		SkippedRate:   e.skippedRate.Load(),
	}
}

// Status formats the counters for periodic status lines.
func (e *Engine) Status() string {
	s := e.Stats()
	return fmt.Sprintf("blocks=%d skipped=%d", s.Processed, s.SkippedLength+s.SkippedRate)
}
