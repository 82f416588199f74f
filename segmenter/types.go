// Package segmenter decides where a video should be cut by fusing shot
// changes, speech segments and speaker identity into split points.
package segmenter

import "errors"

var (
	// ErrUnorderedInput reports signal timestamps that are not ascending.
	ErrUnorderedInput = errors.New("segmenter: input timestamps not ascending")
	// ErrDimensionMismatch reports embeddings of inconsistent dimension.
	ErrDimensionMismatch = errors.New("segmenter: embedding dimension mismatch")
	// ErrBadConfig reports invalid tuning parameters.
	ErrBadConfig = errors.New("segmenter: invalid configuration")
)

// SpeechSegment is one transcribed stretch of speech.
type SpeechSegment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
}

// Window is a fixed-width slice of the audio timeline carrying the voice
// embedding extracted for it. Vector may be all zeros when the window held
// too little audio to embed.
type Window struct {
	Start  float64
	End    float64
	Vector []float64
}

// SplitReason is the closed set of rationales a split point can carry.
type SplitReason int

const (
	// ReasonShotSpeakerChange marks a shot change coinciding with a
	// speaker change.
	ReasonShotSpeakerChange SplitReason = iota
	// ReasonShotSpeechBoundary marks a shot change near a speech segment
	// boundary but with no speaker change.
	ReasonShotSpeechBoundary
	// ReasonSpeakerOnly marks a speaker change with no coincident shot
	// change (emitted only when enabled).
	ReasonSpeakerOnly
)

func (r SplitReason) String() string {
	switch r {
	case ReasonShotSpeakerChange:
		return "shot change with speaker change"
	case ReasonShotSpeechBoundary:
		return "shot change near speech boundary"
	case ReasonSpeakerOnly:
		return "speaker change without shot change"
	}
	return "unknown"
}

// MarshalText lets reasons export as their human-readable tag.
func (r SplitReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// SplitPoint is a final decided cut timestamp.
type SplitPoint struct {
	Timestamp  float64     `json:"timestamp" yaml:"timestamp"`
	Reason     SplitReason `json:"reason" yaml:"reason"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
}

// SkippedShot records a shot change the engine decided not to cut at.
type SkippedShot struct {
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`
	Reason    string  `json:"reason" yaml:"reason"`
}

// Segment is one contiguous piece of the tiled [0, duration] timeline.
type Segment struct {
	Index    int     `json:"index" yaml:"index"`
	Start    float64 `json:"start" yaml:"start"`
	End      float64 `json:"end" yaml:"end"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// Analysis is the frozen outcome of one fusion run.
type Analysis struct {
	ShotChanges    []float64       `json:"shot_changes" yaml:"shot_changes"`
	SpeechSegments []SpeechSegment `json:"speech_segments" yaml:"speech_segments"`
	FinalSplits    []SplitPoint    `json:"final_splits" yaml:"final_splits"`
	SkippedShots   []SkippedShot   `json:"skipped_shots" yaml:"skipped_shots"`
}
