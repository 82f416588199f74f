package segmenter

import "math"

// BuildWindows slices each speech segment into fixed-width embedding windows.
// Windows advance by stride and never cross segment bounds; a segment shorter
// than width yields a single window covering the whole segment. Degenerate
// segments (end <= start) are skipped.
func BuildWindows(segments []SpeechSegment, width, stride float64) []Window {
	if width <= 0 || stride <= 0 {
		return nil
	}
	var out []Window
	for _, seg := range segments {
		if seg.End <= seg.Start {
			continue
		}
		if seg.End-seg.Start <= width {
			out = append(out, Window{Start: seg.Start, End: seg.End})
			continue
		}
		for t0 := seg.Start; t0 < seg.End; t0 += stride {
			t1 := math.Min(t0+width, seg.End)
			out = append(out, Window{Start: t0, End: t1})
			if t1 >= seg.End {
				break
			}
		}
	}
	return out
}
