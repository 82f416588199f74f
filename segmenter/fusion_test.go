package segmenter

import (
	"errors"
	"reflect"
	"testing"
)

func newTestEngine(t *testing.T, opts FusionOptions) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestAnalyze_ShotWithSpeakerChange(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{10.0, 50.0},
		[]SpeechSegment{{Start: 0, End: 80, Text: "..."}},
		[]float64{10.2},
		80.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.FinalSplits) != 1 {
		t.Fatalf("expected 1 split, got %d: %+v", len(res.FinalSplits), res.FinalSplits)
	}
	s := res.FinalSplits[0]
	if s.Timestamp != 10.0 {
		t.Errorf("split at %.2f, want 10.0", s.Timestamp)
	}
	if s.Reason != ReasonShotSpeakerChange {
		t.Errorf("reason %q, want %q", s.Reason, ReasonShotSpeakerChange)
	}
	if s.Confidence != 0.9 {
		t.Errorf("confidence %.2f, want 0.9", s.Confidence)
	}

	segs, err := BuildSegments(res.FinalSplits, 80.0)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	if len(segs) != 2 {
		t.Errorf("expected 2 segments, got %d", len(segs))
	}
}

func TestAnalyze_SameSpeakerSuppressesShot(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{10.0},
		[]SpeechSegment{{Start: 0, End: 80, Text: "..."}},
		nil,
		80.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 0 {
		t.Fatalf("expected no splits, got %+v", res.FinalSplits)
	}
	if len(res.SkippedShots) != 1 || res.SkippedShots[0].Timestamp != 10.0 {
		t.Fatalf("expected shot 10.0 skipped, got %+v", res.SkippedShots)
	}

	segs, err := BuildSegments(res.FinalSplits, 80.0)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	if len(segs) != 1 || segs[0].Duration != 80.0 {
		t.Errorf("expected one full-length segment, got %+v", segs)
	}
}

func TestAnalyze_CloseCandidatesCollapse(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	// Both shots coincide with speaker changes but sit 1s apart; a 2s
	// minimum leaves room for at most one of them.
	res, err := e.Analyze(
		[]float64{5.0, 6.0},
		[]SpeechSegment{{Start: 0, End: 40, Text: "..."}},
		[]float64{5.1, 6.1},
		40.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) > 1 {
		t.Fatalf("expected at most 1 split, got %+v", res.FinalSplits)
	}
}

func TestAnalyze_TooShortVideoNeverSplits(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{1.5},
		[]SpeechSegment{{Start: 0, End: 3, Text: "..."}},
		[]float64{1.5},
		3.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 0 {
		t.Fatalf("expected no splits for a 3s video, got %+v", res.FinalSplits)
	}
	if len(res.SkippedShots) != 1 {
		t.Errorf("expected the shot recorded as skipped, got %+v", res.SkippedShots)
	}
}

func TestAnalyze_ZeroShotsZeroSplits(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(nil, nil, []float64{10.0, 20.0}, 60.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 0 {
		t.Fatalf("speaker changes alone must not split by default, got %+v", res.FinalSplits)
	}
}

func TestAnalyze_SpeakerOnlyToggle(t *testing.T) {
	opts := DefaultFusionOptions()
	opts.SpeakerOnlySplits = true
	e := newTestEngine(t, opts)

	res, err := e.Analyze(nil, nil, []float64{10.0, 30.0}, 60.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 2 {
		t.Fatalf("expected 2 speaker-only splits, got %+v", res.FinalSplits)
	}
	for _, s := range res.FinalSplits {
		if s.Reason != ReasonSpeakerOnly {
			t.Errorf("reason %q, want %q", s.Reason, ReasonSpeakerOnly)
		}
		if s.Confidence != opts.SpeakerOnlyConfidence {
			t.Errorf("confidence %.2f, want %.2f", s.Confidence, opts.SpeakerOnlyConfidence)
		}
	}
}

func TestAnalyze_SpeechBoundaryMediumConfidence(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{20.4},
		[]SpeechSegment{{Start: 0, End: 20, Text: "a"}, {Start: 21, End: 60, Text: "b"}},
		nil,
		60.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 1 {
		t.Fatalf("expected 1 split, got %+v", res.FinalSplits)
	}
	if res.FinalSplits[0].Reason != ReasonShotSpeechBoundary {
		t.Errorf("reason %q, want %q", res.FinalSplits[0].Reason, ReasonShotSpeechBoundary)
	}
	if res.FinalSplits[0].Confidence != 0.6 {
		t.Errorf("confidence %.2f, want 0.6", res.FinalSplits[0].Confidence)
	}
}

func TestAnalyze_DedupKeepsHigherConfidence(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	// Shot at 10.0 only touches a speech boundary; shot at 10.5 also has
	// a speaker change. They fall inside one coincidence window, so the
	// confident one wins.
	res, err := e.Analyze(
		[]float64{10.0, 10.5},
		[]SpeechSegment{{Start: 0, End: 10.2, Text: "a"}, {Start: 10.2, End: 60, Text: "b"}},
		[]float64{11.2},
		60.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 1 {
		t.Fatalf("expected 1 split, got %+v", res.FinalSplits)
	}
	if got := res.FinalSplits[0]; got.Timestamp != 10.5 || got.Reason != ReasonShotSpeakerChange {
		t.Errorf("kept %+v, want the 10.5 speaker-change split", got)
	}
}

func TestAnalyze_TrailingShortSegmentDropped(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{19.0},
		[]SpeechSegment{{Start: 0, End: 20, Text: "..."}},
		[]float64{19.0},
		20.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 0 {
		t.Fatalf("19.0 split would leave a 1s tail, got %+v", res.FinalSplits)
	}
}

func TestAnalyze_BoundaryTimestampsDiscarded(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{0.0, 60.0},
		[]SpeechSegment{{Start: 0, End: 60, Text: "..."}},
		[]float64{0.0, 60.0},
		60.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 0 {
		t.Fatalf("boundary timestamps must be discarded, got %+v", res.FinalSplits)
	}
}

func TestAnalyze_DuplicateShotsTolerated(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	res, err := e.Analyze(
		[]float64{10.0, 10.02, 10.04},
		[]SpeechSegment{{Start: 0, End: 60, Text: "..."}},
		[]float64{10.1},
		60.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 1 {
		t.Fatalf("duplicates within epsilon must collapse to one split, got %+v", res.FinalSplits)
	}
}

func TestAnalyze_InvertedSpeechSegmentsIgnored(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	// The inverted segment would otherwise put a boundary near the shot.
	res, err := e.Analyze(
		[]float64{30.0},
		[]SpeechSegment{{Start: 30.2, End: 29.8, Text: "bad"}, {Start: 0, End: 60, Text: "ok"}},
		nil,
		60.0,
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.FinalSplits) != 0 {
		t.Fatalf("inverted segment must be ignored, got %+v", res.FinalSplits)
	}
}

func TestAnalyze_UnorderedInputRejected(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	if _, err := e.Analyze([]float64{20.0, 10.0}, nil, nil, 60.0); !errors.Is(err, ErrUnorderedInput) {
		t.Errorf("unordered shots: got %v, want ErrUnorderedInput", err)
	}
	if _, err := e.Analyze(nil, nil, []float64{20.0, 10.0}, 60.0); !errors.Is(err, ErrUnorderedInput) {
		t.Errorf("unordered speaker changes: got %v, want ErrUnorderedInput", err)
	}
	if _, err := e.Analyze(nil, nil, nil, -1.0); err == nil {
		t.Error("negative duration must be rejected")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	e := newTestEngine(t, DefaultFusionOptions())

	shots := []float64{8.0, 15.0, 33.0, 47.5}
	speech := []SpeechSegment{{0, 14.8, "a"}, {15.2, 33.1, "b"}, {33.4, 60, "c"}}
	speakers := []float64{15.0, 33.2}

	first, err := e.Analyze(shots, speech, speakers, 60.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := e.Analyze(shots, speech, speakers, 60.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !reflect.DeepEqual(first.FinalSplits, second.FinalSplits) {
		t.Errorf("runs differ:\n%+v\n%+v", first.FinalSplits, second.FinalSplits)
	}
}

func TestNewEngine_RejectsBadOptions(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*FusionOptions)
	}{
		{"zero min segment", func(o *FusionOptions) { o.MinSegmentDuration = 0 }},
		{"negative min segment", func(o *FusionOptions) { o.MinSegmentDuration = -1 }},
		{"zero window", func(o *FusionOptions) { o.CoincidenceWindow = 0 }},
		{"negative epsilon", func(o *FusionOptions) { o.ShotEpsilon = -0.1 }},
		{"confidence above one", func(o *FusionOptions) { o.HighConfidence = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultFusionOptions()
			tc.mutate(&opts)
			if _, err := NewEngine(opts); !errors.Is(err, ErrBadConfig) {
				t.Errorf("got %v, want ErrBadConfig", err)
			}
		})
	}
}
