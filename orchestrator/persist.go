package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mediaforge/smartcut/segmenter"
)

// ExportBundle is the analysis record written for downstream tooling.
type ExportBundle struct {
	Video          string                    `json:"video" yaml:"video"`
	Duration       float64                   `json:"duration" yaml:"duration"`
	GeneratedAt    time.Time                 `json:"generated_at" yaml:"generated_at"`
	ShotChanges    []float64                 `json:"shot_changes" yaml:"shot_changes"`
	SpeechSegments []segmenter.SpeechSegment `json:"speech_segments" yaml:"speech_segments"`
	FinalSplits    []segmenter.SplitPoint    `json:"final_splits" yaml:"final_splits"`
	SkippedShots   []segmenter.SkippedShot   `json:"skipped_shots" yaml:"skipped_shots"`
	Segments       []segmenter.Segment       `json:"segments" yaml:"segments"`
}

// export writes the analysis bundle. With no explicit path it lands in a
// fresh session directory under the configured outputs root.
func (p *Pipeline) export(videoPath string, duration float64, analysis segmenter.Analysis, segments []segmenter.Segment, explicit string) (string, error) {
	path := explicit
	if path == "" {
		dir := filepath.Join(p.cfg.Paths.Outputs, "run_"+time.Now().Format("20060102-150405"))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		path = filepath.Join(dir, "analysis.json")
	}

	bundle := ExportBundle{
		Video:          videoPath,
		Duration:       duration,
		GeneratedAt:    time.Now(),
		ShotChanges:    analysis.ShotChanges,
		SpeechSegments: analysis.SpeechSegments,
		FinalSplits:    analysis.FinalSplits,
		SkippedShots:   analysis.SkippedShots,
		Segments:       segments,
	}
	if err := writeBundle(path, bundle); err != nil {
		return "", err
	}
	p.log.WithField("path", path).Info("analysis exported")
	return path, nil
}

func writeBundle(path string, bundle ExportBundle) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(bundle)
	default:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}
}
