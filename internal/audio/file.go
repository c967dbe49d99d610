// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"audiomon/internal/analysis"
	applog "audiomon/internal/log"
)

// FileSource decodes a WAV, MP3 or Ogg Vorbis file and delivers it in
// blocks, as if it were captured live. A trailing partial block is dropped.
type FileSource struct {
	Path        string
	SampleRate  float64 // Expected rate; a file at any other rate is rejected.
	BlockLength int
	Loop        bool // Restart from the beginning at end of file.
	Realtime    bool // Pace delivery at one block per block period.

	log *applog.Logger
}

// NewFileSource returns a source reading path.
func NewFileSource(path string, sampleRate float64, blockLength int, loop, realtime bool) *FileSource {
	return &FileSource{
		Path:        path,
		SampleRate:  sampleRate,
		BlockLength: blockLength,
		Loop:        loop,
		Realtime:    realtime,
		log:         applog.New("file"),
	}
}

// Run streams the file until it ends (and Loop is off) or ctx is done.
func (s *FileSource) Run(ctx context.Context, handle BlockHandler) error {
	if s.BlockLength < 1 {
		return fmt.Errorf("%w: block length must be positive, got %d", analysis.ErrConfig, s.BlockLength)
	}

	for pass := 1; ; pass++ {
		dec, err := openDecoder(s.Path)
		if err != nil {
			return err
		}
		if rate := float64(dec.SampleRate()); rate != s.SampleRate {
			dec.Close()
			return fmt.Errorf("%s: %w: file is %.0f Hz, configured %.0f Hz",
				s.Path, analysis.ErrSampleRate, rate, s.SampleRate)
		}
		if pass == 1 {
			s.log.Infof("reading %s: %d ch, %d Hz", s.Path, dec.Channels(), dec.SampleRate())
		}

		blocks, err := s.stream(ctx, dec, handle)
		dec.Close()
		if err != nil {
			return err
		}
		s.log.Debugf("pass %d: %d blocks", pass, blocks)

		if !s.Loop || ctx.Err() != nil {
			return nil
		}
		if blocks == 0 {
			return fmt.Errorf("%s: shorter than one block, cannot loop", s.Path)
		}
	}
}

func (s *FileSource) stream(ctx context.Context, dec decoder, handle BlockHandler) (int, error) {
	channels := max(dec.Channels(), 1)
	block := make([]float32, s.BlockLength)
	raw := make([]float32, s.BlockLength*channels)

	var tick <-chan time.Time
	if s.Realtime {
		period := time.Duration(float64(s.BlockLength) / s.SampleRate * float64(time.Second))
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	fill, blocks := 0, 0
	for {
		if ctx.Err() != nil {
			return blocks, nil
		}

		need := (s.BlockLength - fill) * channels
		n, err := dec.Read(raw[:need])
		n -= n % channels
		fill += Downmix(block[fill:], raw[:n], channels)

		if fill == s.BlockLength {
			if tick != nil {
				select {
				case <-ctx.Done():
					return blocks, nil
				case <-tick:
				}
			}
			handle(block, s.SampleRate)
			blocks++
			fill = 0
		}

		switch {
		case errors.Is(err, io.EOF):
			return blocks, nil
		case err != nil:
			return blocks, fmt.Errorf("decode %s: %w", s.Path, err)
		}
	}
}

// decoder yields interleaved samples in [-1,1]. Read returns io.EOF once
// the input is exhausted, never (0, nil).
type decoder interface {
	SampleRate() int
	Channels() int
	Read(dst []float32) (int, error)
	Close() error
}

func openDecoder(path string) (decoder, error) {
	var open func(*os.File) (decoder, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		open = newWAVDecoder
	case ".mp3":
		open = newMP3Decoder
	case ".ogg", ".oga":
		open = newOggDecoder
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dec, nil
}

type wavDecoder struct {
	f      *os.File
	dec    *wav.Decoder
	buf    *goaudio.IntBuffer
	offset int     // 8-bit WAV is unsigned
	scale  float32 // full-scale magnitude for the bit depth
}

func newWAVDecoder(f *os.File) (decoder, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV encoding %d is not integer PCM", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	w := &wavDecoder{
		f:   f,
		dec: d,
		buf: &goaudio.IntBuffer{Format: d.Format()},
	}
	switch d.BitDepth {
	case 8:
		w.offset, w.scale = 128, 128
	case 16:
		w.scale = 1 << 15
	case 24:
		w.scale = 1 << 23
	case 32:
		w.scale = 1 << 31
	default:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, d.BitDepth)
	}
	return w, nil
}

func (w *wavDecoder) SampleRate() int { return int(w.dec.SampleRate) }
func (w *wavDecoder) Channels() int   { return int(w.dec.NumChans) }
func (w *wavDecoder) Close() error    { return w.f.Close() }

func (w *wavDecoder) Read(dst []float32) (int, error) {
	if cap(w.buf.Data) < len(dst) {
		w.buf.Data = make([]int, len(dst))
	}
	w.buf.Data = w.buf.Data[:len(dst)]

	n, err := w.dec.PCMBuffer(w.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	for i, v := range w.buf.Data[:n] {
		dst[i] = float32(v-w.offset) / w.scale
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// go-mp3 always decodes to 16-bit little-endian stereo.
type mp3Decoder struct {
	f   *os.File
	dec *gomp3.Decoder
	buf []byte
}

func newMP3Decoder(f *os.File) (decoder, error) {
	d, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{f: f, dec: d}, nil
}

func (m *mp3Decoder) SampleRate() int { return m.dec.SampleRate() }
func (m *mp3Decoder) Channels() int   { return 2 }
func (m *mp3Decoder) Close() error    { return m.f.Close() }

func (m *mp3Decoder) Read(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	m.buf = m.buf[:need]

	n, err := io.ReadFull(m.dec, m.buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(uint16(m.buf[2*i])|uint16(m.buf[2*i+1])<<8)) / 32768
	}
	if samples == 0 && err == nil {
		err = io.EOF
	}
	return samples, err
}

type oggDecoder struct {
	f *os.File
	r *oggvorbis.Reader
}

func newOggDecoder(f *os.File) (decoder, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return &oggDecoder{f: f, r: r}, nil
}

func (o *oggDecoder) SampleRate() int { return o.r.SampleRate() }
func (o *oggDecoder) Channels() int   { return o.r.Channels() }
func (o *oggDecoder) Close() error    { return o.f.Close() }

// Read returns interleaved values; oggvorbis already produces [-1,1] floats.
func (o *oggDecoder) Read(dst []float32) (int, error) {
	n, err := o.r.Read(dst)
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}
