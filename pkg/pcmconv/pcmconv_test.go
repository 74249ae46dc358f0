package pcmconv

import "testing"

func TestInt16ToFloat32RoundTrip(t *testing.T) {
	src := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	dst := make([]float32, 3)
	n := Int16ToFloat32(src, dst)
	if n != 3 {
		t.Fatalf("got %d samples, want 3", n)
	}
	if dst[0] != 0 {
		t.Errorf("zero sample = %v, want 0", dst[0])
	}
	if dst[1] <= 0.99 || dst[1] > 1.0 {
		t.Errorf("max positive sample = %v, want ~1.0", dst[1])
	}
	if dst[2] != -1.0 {
		t.Errorf("min negative sample = %v, want -1.0", dst[2])
	}
}

func TestInt24ToFloat32SignExtension(t *testing.T) {
	// -1 in 24-bit two's complement: 0xFFFFFF
	src := []byte{0xFF, 0xFF, 0xFF}
	dst := make([]float32, 1)
	Int24ToFloat32(src, dst)
	if dst[0] >= 0 {
		t.Errorf("negative 24-bit sample decoded as %v, want < 0", dst[0])
	}
}

func TestToFloat32Dispatch(t *testing.T) {
	if _, err := ToFloat32(12, nil, nil); err == nil {
		t.Error("expected error for unsupported bit depth")
	}
	src := []byte{0x00, 0x40}
	dst := make([]float32, 1)
	n, err := ToFloat32(16, src, dst)
	if err != nil || n != 1 {
		t.Fatalf("ToFloat32(16) = (%d, %v), want (1, nil)", n, err)
	}
}

func TestFloat32ToInt16Clamps(t *testing.T) {
	src := []float32{2.0, -2.0, 0.0}
	dst := make([]byte, 6)
	Float32ToInt16(src, dst)
	// Out-of-range input clamps to +-1.0, which scales to +-32767.
	clampedHigh := int16(dst[0]) | int16(dst[1])<<8
	if clampedHigh != 32767 {
		t.Errorf("2.0 encoded as %d, want 32767", clampedHigh)
	}
	clampedLow := int16(dst[2]) | int16(dst[3])<<8
	if clampedLow != -32767 {
		t.Errorf("-2.0 encoded as %d, want -32767", clampedLow)
	}
	if dst[4] != 0 || dst[5] != 0 {
		t.Errorf("zero sample encoded as %v %v, want 0 0", dst[4], dst[5])
	}
}
