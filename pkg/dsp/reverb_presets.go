package dsp

// reverbPreset holds the decay/diffusion characteristics used from each of
// OpenMPT's 29 environment reverb presets. The upstream preset table also
// carries room/reflections parameters driving a full early-reflections
// simulation; this bank models only the late-reverberation tank (the part
// audible as "reverb" rather than discrete slap-echo), so only the fields
// that shape it are kept.
type reverbPreset struct {
	decayTime     float32 // seconds, dominates comb feedback
	decayHFRatio  float32 // <1 darkens the tail faster than the fundamental decay
	diffusion     float32 // 0..100
	density       float32 // 0..100
}

// reverbPresets mirrors the 29-entry preset table's decay/diffusion/density
// columns, in the same order as the upstream bank so preset indices line up
// with the original's catalogue (Generic, PaddedCell, Room, Bathroom, ...).
var reverbPresets = [29]reverbPreset{
	{1.30, 0.90, 100.0, 75.0},
	{1.10, 0.83, 100.0, 100.0},
	{1.30, 0.83, 100.0, 100.0},
	{1.50, 0.83, 100.0, 100.0},
	{1.80, 0.70, 100.0, 100.0},
	{1.80, 0.70, 100.0, 100.0},
	{1.49, 0.83, 100.0, 100.0},
	{0.17, 0.10, 100.0, 100.0},
	{0.40, 0.83, 100.0, 100.0},
	{1.49, 0.54, 100.0, 60.0},
	{0.50, 0.10, 100.0, 100.0},
	{2.31, 0.64, 100.0, 100.0},
	{4.32, 0.59, 100.0, 100.0},
	{3.92, 0.70, 100.0, 100.0},
	{2.91, 1.30, 100.0, 100.0},
	{7.24, 0.33, 100.0, 100.0},
	{10.05, 0.23, 100.0, 100.0},
	{0.30, 0.10, 100.0, 100.0},
	{1.49, 0.59, 100.0, 100.0},
	{2.70, 0.79, 100.0, 100.0},
	{1.49, 0.86, 100.0, 100.0},
	{1.49, 0.54, 79.0, 100.0},
	{1.49, 0.67, 50.0, 100.0},
	{1.49, 0.21, 27.0, 100.0},
	{1.49, 0.83, 100.0, 100.0},
	{1.49, 0.50, 21.0, 100.0},
	{1.65, 1.50, 100.0, 100.0},
	{2.81, 0.14, 80.0, 60.0},
	{1.49, 0.10, 100.0, 100.0},
}
