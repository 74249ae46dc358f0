// Package pcmconv converts fixed-point PCM sample buffers (8/16/24/32-bit,
// little-endian) to and from the interleaved float32 frames the engine's
// decoder contract operates on. The FLAC, MP3 and stream decoder
// adapters funnel their native bit depth through this package at the
// decode boundary; the WAV adapter converts go-wav's integer samples
// with its own helper.
package pcmconv

import "fmt"

// Int16ToFloat32 converts little-endian 16-bit PCM bytes into interleaved
// float32 samples in [-1, 1]. dst must hold len(src)/2 samples.
func Int16ToFloat32(src []byte, dst []float32) int {
	n := len(src) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		v := int16(uint16(src[i*2]) | uint16(src[i*2+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
	return n
}

// Int24ToFloat32 converts little-endian packed 24-bit PCM bytes (3 bytes
// per sample) into interleaved float32 samples in [-1, 1].
func Int24ToFloat32(src []byte, dst []float32) int {
	n := len(src) / 3
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		b0 := int32(src[i*3])
		b1 := int32(src[i*3+1])
		b2 := int32(src[i*3+2])
		v := b0 | b1<<8 | b2<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF) // sign-extend 24 -> 32
		}
		dst[i] = float32(v) / 8388608.0
	}
	return n
}

// Int32ToFloat32 converts little-endian 32-bit PCM bytes into interleaved
// float32 samples in [-1, 1].
func Int32ToFloat32(src []byte, dst []float32) int {
	n := len(src) / 4
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		v := int32(uint32(src[i*4]) | uint32(src[i*4+1])<<8 |
			uint32(src[i*4+2])<<16 | uint32(src[i*4+3])<<24)
		dst[i] = float32(v) / 2147483648.0
	}
	return n
}

// Uint8ToFloat32 converts unsigned 8-bit PCM bytes (WAV's native 8-bit
// format, centered at 128) into interleaved float32 samples in [-1, 1].
func Uint8ToFloat32(src []byte, dst []float32) int {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = (float32(src[i]) - 128.0) / 128.0
	}
	return n
}

// ToFloat32 dispatches on bitsPerSample to the matching conversion above.
// dst must be sized for len(src)*8/bitsPerSample samples.
func ToFloat32(bitsPerSample int, src []byte, dst []float32) (int, error) {
	switch bitsPerSample {
	case 8:
		return Uint8ToFloat32(src, dst), nil
	case 16:
		return Int16ToFloat32(src, dst), nil
	case 24:
		return Int24ToFloat32(src, dst), nil
	case 32:
		return Int32ToFloat32(src, dst), nil
	default:
		return 0, fmt.Errorf("pcmconv: unsupported bits per sample: %d", bitsPerSample)
	}
}

// Float32ToInt16 converts interleaved float32 samples back into
// little-endian 16-bit PCM bytes, clamping to the representable range.
// dst must hold len(src)*2 bytes.
func Float32ToInt16(src []float32, dst []byte) int {
	n := len(src)
	if n*2 > len(dst) {
		n = len(dst) / 2
	}
	for i := 0; i < n; i++ {
		v := src[i]
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		s := int16(v * 32767.0)
		dst[i*2] = byte(s)
		dst[i*2+1] = byte(s >> 8)
	}
	return n * 2
}
