package wavefile_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/cadence/internal/adapters/wavefile"
	"github.com/seqlab/cadence/pkg/domain"
)

// writeWav produces a minimal PCM file: 16-bit mono at the given sample
// rate, with dataLen bytes of payload.
func writeWav(t *testing.T, path string, sampleRate uint32, dataLen int) {
	t.Helper()

	byteRate := sampleRate * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(bytes.Repeat([]byte{0x7f}, dataLen))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestOpen_ReportsNaturalDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syllable.wav")
	// 16000 B/s byte rate, 8000 bytes of audio: exactly half a second.
	writeWav(t, path, 8000, 8000)

	opener := wavefile.New(nil)
	handle, err := opener.Open(domain.ItemRef{Path: path, Word: 1, Syllable: 1})
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, 500*time.Millisecond, handle.Duration())
	assert.NoError(t, handle.Play())
}

func TestOpen_StreamsPayloadToSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syllable.wav")
	writeWav(t, path, 8000, 1024)

	var sink bytes.Buffer
	opener := wavefile.New(nil, wavefile.WithSink(&sink))

	handle, err := opener.Open(domain.ItemRef{Path: path})
	require.NoError(t, err)
	defer handle.Close()

	require.NoError(t, handle.Play())
	assert.Equal(t, 1024, sink.Len())
}

func TestOpen_RejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all, just text"), 0o644))

	_, err := wavefile.New(nil).Open(domain.ItemRef{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RIFF")
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := wavefile.New(nil).Open(domain.ItemRef{Path: filepath.Join(t.TempDir(), "missing.wav")})
	require.Error(t, err)
}
