// Package wavefile opens WAV stimuli from disk and reports their natural
// durations from the RIFF header, so playback holds match each recording
// exactly instead of a fixed per-item slot.
package wavefile

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Opener implements ports.StimulusOpener for PCM WAV files. Decoded sample
// data is streamed to Sink on Play; with no sink configured, playback is a
// timed no-op and the engine's hold supplies the pacing.
type Opener struct {
	sink   io.Writer
	logger *slog.Logger
}

// Option configures an Opener.
type Option func(*Opener)

// WithSink directs raw PCM bytes to w during Play, e.g. a pipe into an
// external audio player.
func WithSink(w io.Writer) Option {
	return func(o *Opener) { o.sink = w }
}

// New creates a WAV opener.
func New(logger *slog.Logger, opts ...Option) *Opener {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Opener{logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open reads the file's format chunk and returns a playable handle. The
// file stays open until the handle is closed, keeping at most one decoded
// stimulus resident at a time under the engine's scoped presentation.
func (o *Opener) Open(ref domain.ItemRef) (ports.StimulusHandle, error) {
	f, err := os.Open(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stimulus %s: %w", ref.Path, err)
	}

	fmt_, dataOffset, dataSize, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse stimulus %s: %w", ref.Path, err)
	}

	byteRate := fmt_.byteRate
	if byteRate == 0 {
		f.Close()
		return nil, fmt.Errorf("stimulus %s declares zero byte rate", ref.Path)
	}
	duration := time.Duration(float64(dataSize) / float64(byteRate) * float64(time.Second))

	return &handle{
		file:       f,
		sink:       o.sink,
		logger:     o.logger,
		path:       ref.Path,
		dataOffset: dataOffset,
		dataSize:   dataSize,
		duration:   duration,
	}, nil
}

type handle struct {
	file       *os.File
	sink       io.Writer
	logger     *slog.Logger
	path       string
	dataOffset int64
	dataSize   uint32
	duration   time.Duration
}

func (h *handle) Duration() time.Duration { return h.duration }

// Play streams the PCM payload to the configured sink. Playback pacing is
// the caller's responsibility; Play returns as soon as the bytes are
// written.
func (h *handle) Play() error {
	if h.sink == nil {
		h.logger.Debug("playing stimulus", "path", h.path, "duration", h.duration)
		return nil
	}
	if _, err := h.file.Seek(h.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek stimulus %s: %w", h.path, err)
	}
	if _, err := io.CopyN(h.sink, h.file, int64(h.dataSize)); err != nil {
		return fmt.Errorf("failed to stream stimulus %s: %w", h.path, err)
	}
	return nil
}

func (h *handle) Close() error { return h.file.Close() }

type wavFormat struct {
	audioFormat   uint16
	channels      uint16
	sampleRate    uint32
	byteRate      uint32
	blockAlign    uint16
	bitsPerSample uint16
}

// readHeader walks the RIFF chunk list and returns the format chunk plus
// the offset and size of the data chunk.
func readHeader(f *os.File) (wavFormat, int64, uint32, error) {
	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return wavFormat{}, 0, 0, fmt.Errorf("short RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return wavFormat{}, 0, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		format    wavFormat
		haveFmt   bool
		offset    = int64(12)
		dataStart int64
		dataSize  uint32
	)
	for {
		var chunk [8]byte
		if _, err := f.ReadAt(chunk[:], offset); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return wavFormat{}, 0, 0, fmt.Errorf("reading chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			var body [16]byte
			if _, err := f.ReadAt(body[:], offset+8); err != nil {
				return wavFormat{}, 0, 0, fmt.Errorf("reading fmt chunk: %w", err)
			}
			format = wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(body[0:2]),
				channels:      binary.LittleEndian.Uint16(body[2:4]),
				sampleRate:    binary.LittleEndian.Uint32(body[4:8]),
				byteRate:      binary.LittleEndian.Uint32(body[8:12]),
				blockAlign:    binary.LittleEndian.Uint16(body[12:14]),
				bitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
			}
			haveFmt = true
		case "data":
			dataStart = offset + 8
			dataSize = size
		}

		// Chunks are word-aligned.
		offset += 8 + int64(size)
		if size%2 == 1 {
			offset++
		}

		if haveFmt && dataStart != 0 {
			break
		}
	}

	if !haveFmt {
		return wavFormat{}, 0, 0, fmt.Errorf("missing fmt chunk")
	}
	if dataStart == 0 {
		return wavFormat{}, 0, 0, fmt.Errorf("missing data chunk")
	}
	return format, dataStart, dataSize, nil
}
