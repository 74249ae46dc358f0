package decoders

import (
	"strings"
	"testing"

	"github.com/drgolem/audioengine/pkg/decoders/wav"
	"github.com/drgolem/audioengine/pkg/types"
)

func TestNewDecoderUnsupportedFormat(t *testing.T) {
	_, err := NewDecoder("song.ogg")
	if err == nil {
		t.Fatal("expected error for unregistered extension")
	}
	if !strings.Contains(err.Error(), ".ogg") {
		t.Errorf("error %q should mention the unsupported extension", err)
	}
}

func TestNewDecoderMissingFile(t *testing.T) {
	_, err := NewDecoder("does-not-exist.wav")
	if err == nil {
		t.Fatal("expected error opening a nonexistent file")
	}
}

func TestSupportedExtensionsIncludesCoreFormats(t *testing.T) {
	exts := SupportedExtensions()
	want := []string{".mp3", ".flac", ".fla", ".wav"}
	for _, w := range want {
		found := false
		for _, e := range exts {
			if e == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("SupportedExtensions() missing %s", w)
		}
	}
}

func TestRegisterAddsExtension(t *testing.T) {
	Register(".probe", func() types.AudioDecoder { return wav.NewDecoder() })

	found := false
	for _, e := range SupportedExtensions() {
		if e == ".probe" {
			found = true
		}
	}
	if !found {
		t.Error("Register(\".probe\", ...) did not add the extension")
	}
}
