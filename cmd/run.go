// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"audiomon/internal/analysis"
	"audiomon/internal/audio"
	"audiomon/internal/broadcast"
	"audiomon/internal/config"
)

// run serves cfg until ctx is cancelled or a file source reaches its end.
//
// Goroutines:
//   - source: capture callback or file reader, running analysis per block
//   - broadcaster: formats published results and writes them to subscribers
//   - reporter: periodic status line
func run(ctx context.Context, cfg *config.Config) error {
	analyzerCfg, err := cfg.AnalyzerConfig()
	if err != nil {
		return err
	}
	analyzer, err := analysis.NewAnalyzer(analyzerCfg)
	if err != nil {
		return err
	}

	manager, err := broadcast.Listen(cfg.Transport.SocketPath, broadcast.Options{
		Precision:    cfg.Transport.Precision,
		ClientBuffer: cfg.Transport.ClientBuffer,
		WriteTimeout: cfg.Transport.WriteTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Errorf("close broadcaster: %v", err)
		}
	}()

	engine, err := audio.NewEngine(analyzer, manager)
	if err != nil {
		return err
	}

	reporter, err := broadcast.NewReporter(cfg.Transport.ReportInterval, manager, engine.Status)
	if err != nil {
		return err
	}
	reporter.Start()
	defer reporter.Stop()

	log.Infof("record fields: %s", broadcast.Header(cfg.BandLabels(), analyzer.BandCount()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(ctx)
	})
	g.Go(func() error {
		// A finished file stops the service.
		defer cancel()
		if err := engine.Run(ctx, newSource(cfg)); err != nil {
			return fmt.Errorf("audio source: %w", err)
		}
		return nil
	})

	err = g.Wait()
	s := engine.Stats()
	log.Infof("shutting down: %d blocks analyzed, %d skipped", s.Processed, s.SkippedLength+s.SkippedRate)
	return err
}

// newSource picks file input when a path is configured, live capture otherwise.
func newSource(cfg *config.Config) audio.Source {
	a := cfg.Audio
	if a.InputFile != "" {
		return audio.NewFileSource(a.InputFile, a.SampleRate, a.BlockLength, a.Loop, a.Realtime)
	}
	return audio.NewCaptureSource(a.InputDevice, a.InputChannels, a.SampleRate, a.BlockLength, a.LowLatency)
}
