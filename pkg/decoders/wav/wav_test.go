package wav

import (
	"os"
	"path/filepath"
	"testing"

	goWav "github.com/youpy/go-wav"

	"github.com/drgolem/audioengine/pkg/types"
)

func TestNewDecoder(t *testing.T) {
	decoder := NewDecoder()
	if decoder == nil {
		t.Fatal("NewDecoder returned nil")
	}
}

func TestOpenMissingFile(t *testing.T) {
	decoder := NewDecoder()
	if err := decoder.Open("does-not-exist.wav"); err == nil {
		t.Error("expected error opening a nonexistent file")
	}
}

func TestReadWithoutOpen(t *testing.T) {
	decoder := NewDecoder()
	buf := make([]float32, 256)
	if _, err := decoder.Read(buf); err == nil {
		t.Error("expected error when reading without opening file")
	}
}

func TestIntSampleToFloat32Range(t *testing.T) {
	if v := intSampleToFloat32(32767, 16); v <= 0.99 || v > 1.0 {
		t.Errorf("max 16-bit sample = %v, want ~1.0", v)
	}
	if v := intSampleToFloat32(-32768, 16); v != -1.0 {
		t.Errorf("min 16-bit sample = %v, want -1.0", v)
	}
	if v := intSampleToFloat32(128, 8); v != 0 {
		t.Errorf("midpoint 8-bit sample = %v, want 0", v)
	}
}

func TestSeekUnsupported(t *testing.T) {
	decoder := NewDecoder()
	if err := decoder.Seek(1); err != types.ErrUnsupported {
		t.Errorf("Seek() = %v, want types.ErrUnsupported", err)
	}
}

// writeTestWAV builds a short mono 16-bit PCM WAV file for round-trip tests.
func writeTestWAV(t *testing.T, path string, numSamples uint32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	writer := goWav.NewWriter(f, numSamples, 1, 44100, 16)
	data := make([]byte, numSamples*2)
	for i := uint32(0); i < numSamples; i++ {
		data[i*2] = byte(i)
		data[i*2+1] = byte(i >> 8)
	}
	if _, err := writer.Write(data); err != nil {
		t.Fatalf("write WAV data: %v", err)
	}
}

func TestReadReturnsCleanEOFAtEndOfStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	const totalFrames = 100
	writeTestWAV(t, path, totalFrames)

	decoder := NewDecoder()
	if err := decoder.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer decoder.Close()

	buf := make([]float32, totalFrames*2)
	frames, err := decoder.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frames != totalFrames {
		t.Fatalf("Read returned %d frames, want %d", frames, totalFrames)
	}

	frames, err = decoder.Read(buf)
	if err != nil {
		t.Errorf("Read at end of stream returned err = %v, want nil", err)
	}
	if frames != 0 {
		t.Errorf("Read at end of stream returned %d frames, want 0", frames)
	}
}
