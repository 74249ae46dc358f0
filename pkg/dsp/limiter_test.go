package dsp

import "testing"

func TestLimiterClampsLoudTransient(t *testing.T) {
	var l limiter
	l.reset()

	buf := []float32{2.0, -2.0, 2.0, -2.0}
	for i := 0; i < 50; i++ { // let the attack envelope settle
		l.process(buf)
		for _, v := range buf {
			if v > 1.0 || v < -1.0 {
				t.Fatalf("iteration %d: sample = %v, want within [-1, 1]", i, v)
			}
		}
		buf[0], buf[1], buf[2], buf[3] = 2.0, -2.0, 2.0, -2.0
	}
}

func TestLimiterResetRestoresUnityGain(t *testing.T) {
	var l limiter
	l.reset()
	buf := []float32{2.0, -2.0}
	l.process(buf)
	if l.gain >= 1.0 {
		t.Fatalf("gain after limiting a loud signal = %v, want < 1.0", l.gain)
	}

	l.reset()
	if l.gain != 1.0 {
		t.Errorf("gain after reset = %v, want 1.0", l.gain)
	}
}

func TestLimiterPassesQuietSignalUnchanged(t *testing.T) {
	var l limiter
	l.reset()
	buf := []float32{0.1, -0.1}
	l.process(buf)
	if buf[0] != 0.1 || buf[1] != -0.1 {
		t.Errorf("quiet signal changed: %v, want untouched", buf)
	}
}
