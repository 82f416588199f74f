package segmenter

import (
	"fmt"
	"sort"
)

// BuildSegments tiles [0, totalDuration] with the ordered split points.
// len(splits)+1 segments come back, contiguous and gap-free. Splits must be
// strictly increasing and strictly inside the video.
func BuildSegments(splits []SplitPoint, totalDuration float64) ([]Segment, error) {
	if totalDuration <= 0 {
		return nil, fmt.Errorf("segmenter: total duration %.3f must be positive", totalDuration)
	}
	if !sort.SliceIsSorted(splits, func(i, j int) bool { return splits[i].Timestamp < splits[j].Timestamp }) {
		return nil, fmt.Errorf("%w: split points", ErrUnorderedInput)
	}
	bounds := make([]float64, 0, len(splits)+2)
	bounds = append(bounds, 0)
	for _, s := range splits {
		if s.Timestamp <= bounds[len(bounds)-1] || s.Timestamp >= totalDuration {
			return nil, fmt.Errorf("segmenter: split %.3f outside (%.3f, %.3f)",
				s.Timestamp, bounds[len(bounds)-1], totalDuration)
		}
		bounds = append(bounds, s.Timestamp)
	}
	bounds = append(bounds, totalDuration)

	segments := make([]Segment, len(bounds)-1)
	for i := range segments {
		segments[i] = Segment{
			Index:    i,
			Start:    bounds[i],
			End:      bounds[i+1],
			Duration: bounds[i+1] - bounds[i],
		}
	}
	return segments, nil
}
