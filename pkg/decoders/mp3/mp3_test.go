package mp3

import (
	"testing"

	"github.com/drgolem/audioengine/pkg/types"
)

func TestNewDecoder(t *testing.T) {
	decoder := NewDecoder()
	if decoder == nil {
		t.Fatal("NewDecoder returned nil")
	}
}

func TestReadWithoutOpen(t *testing.T) {
	decoder := NewDecoder()
	buf := make([]float32, 1024)
	if _, err := decoder.Read(buf); err == nil {
		t.Error("expected error when reading without opening file")
	}
}

func TestSeekUnsupported(t *testing.T) {
	decoder := NewDecoder()
	if err := decoder.Seek(5); err != types.ErrUnsupported {
		t.Errorf("Seek() = %v, want types.ErrUnsupported", err)
	}
}

func TestCloseWithoutOpenIsNoop(t *testing.T) {
	decoder := NewDecoder()
	if err := decoder.Close(); err != nil {
		t.Errorf("Close on unopened decoder failed: %v", err)
	}
}
