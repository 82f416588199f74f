// Package media wraps the local ffmpeg/ffprobe tooling: audio extraction,
// duration probing and lossless splitting.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mediaforge/smartcut/segmenter"
)

// ExtractAudio pulls a 16kHz mono wav out of the video into a temp file.
// The returned cleanup func removes it.
func ExtractAudio(ctx context.Context, videoPath string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "smartcut-*.wav")
	if err != nil {
		return "", nil, err
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		tmp.Name(),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("ffmpeg audio extract: %w\n%s", err, out)
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// Duration probes the container duration in seconds.
func Duration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration parse %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// Split cuts the video into the given segments by stream copy, so no
// re-encode happens. Output files land in outputDir as
// <base>_segment_NNN.mp4 and their paths come back in segment order.
func Split(ctx context.Context, videoPath, outputDir string, segments []segmenter.Segment) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	paths := make([]string, 0, len(segments))
	for _, seg := range segments {
		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_segment_%03d.mp4", base, seg.Index))
		cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
			"-ss", formatSeconds(seg.Start),
			"-i", videoPath,
			"-t", formatSeconds(seg.Duration),
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			outPath,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("ffmpeg split segment %d: %w\n%s", seg.Index, err, out)
		}
		paths = append(paths, outPath)
	}
	return paths, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
