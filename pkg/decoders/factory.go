// Package decoders resolves a file name to the registered decoder for its
// extension and opens it.
package decoders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drgolem/audioengine/pkg/decoders/flac"
	"github.com/drgolem/audioengine/pkg/decoders/mp3"
	"github.com/drgolem/audioengine/pkg/decoders/wav"
	"github.com/drgolem/audioengine/pkg/types"
)

// factory constructs an unopened decoder for a registered extension.
type factory func() types.AudioDecoder

// registry maps a lower-cased extension (including the leading dot) to the
// factory that builds its decoder. Multiple extensions may resolve to the
// same factory (.flac and .fla both select the FLAC decoder).
var registry = map[string]factory{
	".mp3":  func() types.AudioDecoder { return mp3.NewDecoder() },
	".flac": func() types.AudioDecoder { return flac.NewDecoder() },
	".fla":  func() types.AudioDecoder { return flac.NewDecoder() },
	".wav":  func() types.AudioDecoder { return wav.NewDecoder() },
}

// Register adds or overrides the decoder factory for ext (including the
// leading dot, e.g. ".ogg"), letting a host application extend the set of
// playable formats without modifying this package.
func Register(ext string, f factory) {
	registry[strings.ToLower(ext)] = f
}

// SupportedExtensions returns every registered extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}

// NewDecoder creates and opens the decoder registered for fileName's
// extension. Returns an opened decoder ready for use, or an error if the
// format is unsupported or the file cannot be opened.
func NewDecoder(fileName string) (types.AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	f, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file format: %s (supported: %v)", ext, SupportedExtensions())
	}
	decoder := f()

	if err := decoder.Open(fileName); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	return decoder, nil
}
