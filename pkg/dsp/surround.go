package dsp

// surroundEffect widens stereo image with a Haas-delay technique: each
// channel's signal, delayed and lightly lowpassed, is inverted and mixed
// into the opposite channel. Depth controls how much of the delayed,
// inverted signal is blended in; DelayMs sets how long ago that signal
// was sampled from.
type surroundEffect struct {
	sampleRate int
	delayMs    int

	delayL, delayR []float32
	writePos       int

	lpStateL, lpStateR float32
}

const (
	surroundMinDelayMs = 5
	surroundMaxDelayMs = 45
)

func (s *surroundEffect) reset(sampleRate int) {
	s.sampleRate = sampleRate
	s.delayMs = -1
	maxSamples := sampleRate * surroundMaxDelayMs / 1000
	if maxSamples < 1 {
		maxSamples = 1
	}
	s.delayL = make([]float32, maxSamples)
	s.delayR = make([]float32, maxSamples)
	s.writePos = 0
	s.lpStateL = 0
	s.lpStateR = 0
}

func (s *surroundEffect) configure(delayMs int) {
	if delayMs < surroundMinDelayMs {
		delayMs = surroundMinDelayMs
	} else if delayMs > surroundMaxDelayMs {
		delayMs = surroundMaxDelayMs
	}
	s.delayMs = delayMs
}

func (s *surroundEffect) process(buffer []float32, channels int, params SurroundParams) {
	if channels < 2 {
		return
	}
	if params.DelayMs != s.delayMs {
		s.configure(params.DelayMs)
	}
	depth := params.Depth
	if depth < 1 {
		depth = 1
	} else if depth > 16 {
		depth = 16
	}
	mix := float32(depth) / 16.0

	delaySamples := s.sampleRate * s.delayMs / 1000
	if delaySamples < 1 {
		delaySamples = 1
	}
	bufLen := len(s.delayL)

	const lpAlpha = 0.35

	frames := len(buffer) / channels
	for i := 0; i < frames; i++ {
		base := i * channels
		left := buffer[base]
		right := buffer[base+1]

		readPos := s.writePos - delaySamples
		for readPos < 0 {
			readPos += bufLen
		}
		delayedL := s.delayL[readPos]
		delayedR := s.delayR[readPos]

		s.lpStateL += lpAlpha * (delayedR - s.lpStateL)
		s.lpStateR += lpAlpha * (delayedL - s.lpStateR)

		buffer[base] = clamp1(left - mix*s.lpStateL)
		buffer[base+1] = clamp1(right - mix*s.lpStateR)

		s.delayL[s.writePos] = left
		s.delayR[s.writePos] = right
		s.writePos++
		if s.writePos >= bufLen {
			s.writePos = 0
		}
	}
}
