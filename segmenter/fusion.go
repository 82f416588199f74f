package segmenter

import (
	"fmt"
	"math"
	"sort"
)

// FusionOptions tunes the split decision rules. Zero values are invalid;
// start from DefaultFusionOptions.
type FusionOptions struct {
	// MinSegmentDuration is the shortest segment a split may produce.
	MinSegmentDuration float64
	// CoincidenceWindow is the tolerance within which two signal
	// timestamps refer to the same moment.
	CoincidenceWindow float64
	// ShotEpsilon collapses duplicate shot timestamps from the detector.
	ShotEpsilon float64

	HighConfidence   float64
	MediumConfidence float64

	// SpeakerOnlySplits admits speaker changes with no coincident shot
	// change as low-confidence candidates. Off by default: a speaker
	// change alone never cuts.
	SpeakerOnlySplits     bool
	SpeakerOnlyConfidence float64
}

// DefaultFusionOptions mirrors the tuned production thresholds.
func DefaultFusionOptions() FusionOptions {
	return FusionOptions{
		MinSegmentDuration:    2.0,
		CoincidenceWindow:     1.0,
		ShotEpsilon:           0.05,
		HighConfidence:        0.9,
		MediumConfidence:      0.6,
		SpeakerOnlyConfidence: 0.4,
	}
}

// Engine fuses shot changes, speech segments and speaker changes into split
// points. It holds no per-call state and is safe to share across videos.
type Engine struct {
	opts FusionOptions
}

// NewEngine validates the options up front so a misconfigured engine never
// processes anything.
func NewEngine(opts FusionOptions) (*Engine, error) {
	switch {
	case opts.MinSegmentDuration <= 0:
		return nil, fmt.Errorf("%w: min segment duration %.3f", ErrBadConfig, opts.MinSegmentDuration)
	case opts.CoincidenceWindow <= 0:
		return nil, fmt.Errorf("%w: coincidence window %.3f", ErrBadConfig, opts.CoincidenceWindow)
	case opts.ShotEpsilon < 0:
		return nil, fmt.Errorf("%w: shot epsilon %.3f", ErrBadConfig, opts.ShotEpsilon)
	}
	for _, c := range []float64{opts.HighConfidence, opts.MediumConfidence, opts.SpeakerOnlyConfidence} {
		if c < 0 || c > 1 {
			return nil, fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrBadConfig, c)
		}
	}
	return &Engine{opts: opts}, nil
}

type candidate struct {
	SplitPoint
	fromShot bool
}

// Analyze applies the fusion rules and returns the frozen analysis. Inputs
// are treated as immutable; the only errors are malformed signals. Degenerate
// inputs (no shots, video too short to split) yield an empty split list, not
// an error.
func (e *Engine) Analyze(shotChanges []float64, speech []SpeechSegment, speakerChanges []float64, totalDuration float64) (Analysis, error) {
	if totalDuration <= 0 {
		return Analysis{}, fmt.Errorf("segmenter: total duration %.3f must be positive", totalDuration)
	}
	if !sort.Float64sAreSorted(shotChanges) {
		return Analysis{}, fmt.Errorf("%w: shot changes", ErrUnorderedInput)
	}
	if !sort.Float64sAreSorted(speakerChanges) {
		return Analysis{}, fmt.Errorf("%w: speaker changes", ErrUnorderedInput)
	}

	out := Analysis{
		ShotChanges:    shotChanges,
		SpeechSegments: speech,
		FinalSplits:    []SplitPoint{},
		SkippedShots:   []SkippedShot{},
	}

	shots := e.cleanShots(shotChanges, totalDuration)
	speakers := clampTimes(speakerChanges, totalDuration)
	boundaries := speechBoundaries(speech, totalDuration)

	// A split needs room for two minimum-length segments.
	if totalDuration <= 2*e.opts.MinSegmentDuration {
		for _, t := range shots {
			out.SkippedShots = append(out.SkippedShots, SkippedShot{t, "video too short to split"})
		}
		return out, nil
	}

	var cands []candidate
	for _, t := range shots {
		switch {
		case nearAny(t, speakers, e.opts.CoincidenceWindow):
			cands = append(cands, candidate{SplitPoint{t, ReasonShotSpeakerChange, e.opts.HighConfidence}, true})
		case nearAny(t, boundaries, e.opts.CoincidenceWindow):
			cands = append(cands, candidate{SplitPoint{t, ReasonShotSpeechBoundary, e.opts.MediumConfidence}, true})
		default:
			out.SkippedShots = append(out.SkippedShots, SkippedShot{t, "continuous speech, no cut"})
		}
	}
	if e.opts.SpeakerOnlySplits {
		for _, t := range speakers {
			if !nearAny(t, shots, e.opts.CoincidenceWindow) {
				cands = append(cands, candidate{SplitPoint{t, ReasonSpeakerOnly, e.opts.SpeakerOnlyConfidence}, false})
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Timestamp < cands[j].Timestamp })
	cands = e.dedupe(cands)
	out.FinalSplits, out.SkippedShots = e.enforceMinDuration(cands, totalDuration, out.SkippedShots)
	return out, nil
}

// cleanShots clamps shot timestamps into the open (0, duration) interval and
// collapses near-duplicates within ShotEpsilon.
func (e *Engine) cleanShots(shots []float64, duration float64) []float64 {
	in := clampTimes(shots, duration)
	var out []float64
	for _, t := range in {
		if len(out) > 0 && t-out[len(out)-1] <= e.opts.ShotEpsilon {
			continue
		}
		out = append(out, t)
	}
	return out
}

func clampTimes(times []float64, duration float64) []float64 {
	var out []float64
	for _, t := range times {
		if t > 0 && t < duration {
			out = append(out, t)
		}
	}
	return out
}

// speechBoundaries collects the start and end of every well-formed speech
// segment, dropping inverted entries and clipping overshoot to the video.
func speechBoundaries(speech []SpeechSegment, duration float64) []float64 {
	var out []float64
	for _, s := range speech {
		start, end := math.Max(s.Start, 0), math.Min(s.End, duration)
		if end <= start {
			continue
		}
		out = append(out, start, end)
	}
	sort.Float64s(out)
	return out
}

func nearAny(t float64, times []float64, window float64) bool {
	for _, x := range times {
		if math.Abs(x-t) < window {
			return true
		}
	}
	return false
}

// dedupe collapses candidates closer than the coincidence window, keeping
// the higher-confidence one (the earlier one on a tie).
func (e *Engine) dedupe(cands []candidate) []candidate {
	var out []candidate
	for _, c := range cands {
		if len(out) == 0 || c.Timestamp-out[len(out)-1].Timestamp >= e.opts.CoincidenceWindow {
			out = append(out, c)
			continue
		}
		if c.Confidence > out[len(out)-1].Confidence {
			out[len(out)-1] = c
		}
	}
	return out
}

// enforceMinDuration walks the candidates left to right, dropping any whose
// segment against the previous accepted split (or zero) is too short. A
// higher-confidence latecomer displaces the accepted split instead; moving a
// split later only widens the preceding gap, so one pass suffices. A trailing
// split that would strand a short final segment is dropped last.
func (e *Engine) enforceMinDuration(cands []candidate, duration float64, skipped []SkippedShot) ([]SplitPoint, []SkippedShot) {
	accepted := []candidate{}
	skip := func(c candidate) {
		if c.fromShot {
			skipped = append(skipped, SkippedShot{c.Timestamp, "segment too short"})
		}
	}
	for _, c := range cands {
		lastT := 0.0
		if len(accepted) > 0 {
			lastT = accepted[len(accepted)-1].Timestamp
		}
		switch {
		case c.Timestamp-lastT >= e.opts.MinSegmentDuration:
			accepted = append(accepted, c)
		case len(accepted) > 0 && c.Confidence > accepted[len(accepted)-1].Confidence:
			skip(accepted[len(accepted)-1])
			accepted[len(accepted)-1] = c
		default:
			skip(c)
		}
	}
	for len(accepted) > 0 && duration-accepted[len(accepted)-1].Timestamp < e.opts.MinSegmentDuration {
		skip(accepted[len(accepted)-1])
		accepted = accepted[:len(accepted)-1]
	}
	splits := make([]SplitPoint, len(accepted))
	for i, c := range accepted {
		splits[i] = c.SplitPoint
	}
	return splits, skipped
}
