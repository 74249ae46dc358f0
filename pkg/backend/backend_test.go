package backend

import (
	"errors"
	"testing"

	"github.com/drgolem/audioengine/pkg/renderring"
)

func TestCandidateOrderAutoMatchesSpecifiedPriority(t *testing.T) {
	got := candidateOrder(PreferAuto)
	want := []Preference{PreferCallbackPull, PreferBufferQueue, PreferBlockingWrite}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidateOrder(Auto)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCandidateOrderPreferredFirstThenAutoOrderForRest(t *testing.T) {
	got := candidateOrder(PreferBlockingWrite)
	want := []Preference{PreferBlockingWrite, PreferCallbackPull, PreferBufferQueue}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidateOrder(BlockingWrite)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPreferenceStringNames(t *testing.T) {
	cases := map[Preference]string{
		PreferAuto:           "auto",
		PreferCallbackPull:   "callback-pull",
		PreferBufferQueue:    "buffer-queue",
		PreferBlockingWrite:  "blocking-write",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Preference(%d).String() = %q, want %q", p, got, want)
		}
	}
}

// fakeBackend lets Open's fallback chain be exercised without a real
// PortAudio device.
type fakeBackend struct {
	startErr error
	started  bool
}

func (f *fakeBackend) Start(cfg Config, ring *renderring.Ring) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}
func (f *fakeBackend) Stop() error          { return nil }
func (f *fakeBackend) Close() error         { return nil }
func (f *fakeBackend) Disconnected() bool   { return false }
func (f *fakeBackend) BurstFrames() int     { return 0 }

func TestOpenReturnsAllFailedErrorWhenEveryCandidateFails(t *testing.T) {
	orig := newShapeFn
	defer func() { newShapeFn = orig }()

	newShapeFn = func(Preference) Backend {
		return &fakeBackend{startErr: errors.New("no device")}
	}

	_, err := Open(PreferAuto, true, Config{}, renderring.New())
	if err == nil {
		t.Fatal("Open() error = nil, want ErrAllBackendsFailed")
	}
	var allFailed *ErrAllBackendsFailed
	if !errors.As(err, &allFailed) {
		t.Fatalf("Open() error = %T, want *ErrAllBackendsFailed", err)
	}
	if len(allFailed.Attempts) != 3 {
		t.Errorf("len(Attempts) = %d, want 3", len(allFailed.Attempts))
	}
}

func TestOpenStopsAtFirstSuccess(t *testing.T) {
	orig := newShapeFn
	defer func() { newShapeFn = orig }()

	calls := 0
	newShapeFn = func(Preference) Backend {
		calls++
		if calls == 1 {
			return &fakeBackend{startErr: errors.New("unavailable")}
		}
		return &fakeBackend{}
	}

	b, err := Open(PreferAuto, true, Config{}, renderring.New())
	if err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	if b == nil {
		t.Fatal("Open() backend = nil, want non-nil")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one failure then one success)", calls)
	}
}

func TestOpenWithoutFallbackOnlyTriesPreferred(t *testing.T) {
	orig := newShapeFn
	defer func() { newShapeFn = orig }()

	calls := 0
	newShapeFn = func(Preference) Backend {
		calls++
		return &fakeBackend{startErr: errors.New("unavailable")}
	}

	_, err := Open(PreferAuto, false, Config{}, renderring.New())
	if err == nil {
		t.Fatal("Open() error = nil, want failure")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (fallback disabled)", calls)
	}
}
